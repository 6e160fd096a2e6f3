package client

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// RevocationRegistryDefinitionID derives the 32-byte definition id and
// the referenced credential definition id from the payload.
func RevocationRegistryDefinitionID(payload []byte) (id, credDefID interfaces.ResourceID, def *interfaces.RevocationRegistryDefinition, err error) {
	def, err = interfaces.ParseRevocationRegistryDefinition(payload)
	if err != nil {
		return interfaces.ResourceID{}, interfaces.ResourceID{}, nil, err
	}
	idString := interfaces.RevRegDefIDString(def.CredDefID, def.Tag)
	return interfaces.ResourceIDHash(idString), interfaces.ResourceIDHash(def.CredDefID), def, nil
}

// CreateRevocationRegistryDefinition stores a revocation registry
// definition under the issuer identity named in the payload.
func (c *Client) CreateRevocationRegistryDefinition(ctx context.Context, signer interfaces.TransactionSigner, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, credDefID, def, err := RevocationRegistryDefinitionID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(def.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitWrite(ctx, signer, identity, registry.RevocationRegistryName,
		"createRevocationRegistryDefinition", identity, id, credDefID, def.IssuerID, payload)
	return id, receipt, err
}

// PrepareCreateRevocationRegistryDefinitionEndorsement builds the signing
// material for an endorsed createRevocationRegistryDefinition.
func (c *Client) PrepareCreateRevocationRegistryDefinitionEndorsement(payload []byte) (EndorsementData, interfaces.ResourceID, error) {
	id, credDefID, def, err := RevocationRegistryDefinitionID(payload)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	identity, err := interfaces.DidAccount(def.IssuerID)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	spec, err := c.spec(registry.RevocationRegistryName)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createRevocationRegistryDefinition").
		Bytes32(id).
		Bytes32(credDefID).
		String(def.IssuerID).
		Bytes(payload)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, id, nil
}

// SubmitCreateRevocationRegistryDefinitionSigned submits an endorsed
// createRevocationRegistryDefinition carried by the from account.
func (c *Client) SubmitCreateRevocationRegistryDefinitionSigned(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, sig interfaces.SignatureData, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, credDefID, def, err := RevocationRegistryDefinitionID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(def.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitSigned(ctx, signer, from, registry.RevocationRegistryName,
		"createRevocationRegistryDefinition", identity, sig, id, credDefID, def.IssuerID, payload)
	return id, receipt, err
}

// SuspendRevocationRegistry reversibly suspends a revocation registry.
func (c *Client) SuspendRevocationRegistry(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, id interfaces.ResourceID) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.RevocationRegistryName, "suspendRevocationRegistry", identity, id)
}

// ReactivateRevocationRegistry lifts a suspension.
func (c *Client) ReactivateRevocationRegistry(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, id interfaces.ResourceID) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.RevocationRegistryName, "reactivateRevocationRegistry", identity, id)
}

// RevokeRevocationRegistry terminally revokes a revocation registry.
func (c *Client) RevokeRevocationRegistry(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, id interfaces.ResourceID) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.RevocationRegistryName, "revokeRevocationRegistry", identity, id)
}

// PrepareRevocationStatusEndorsement builds the signing material for an
// endorsed suspend, reactivate or revoke. The digest binds the record's
// current version, so it reads the ledger first. method is one of
// "suspendRevocationRegistry", "reactivateRevocationRegistry",
// "revokeRevocationRegistry".
func (c *Client) PrepareRevocationStatusEndorsement(ctx context.Context, method string, identity interfaces.Account, id interfaces.ResourceID) (EndorsementData, error) {
	switch method {
	case "suspendRevocationRegistry", "reactivateRevocationRegistry", "revokeRevocationRegistry":
	default:
		return EndorsementData{}, fmt.Errorf("unknown revocation status method %q", method)
	}
	record, err := c.ResolveRevocationRegistryDefinition(ctx, id)
	if err != nil {
		return EndorsementData{}, err
	}
	spec, err := c.spec(registry.RevocationRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, method).
		Bytes32(id).
		Uint64(record.Metadata.VersionID)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// SubmitRevocationStatusSigned submits an endorsed status change built by
// PrepareRevocationStatusEndorsement.
func (c *Client) SubmitRevocationStatusSigned(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, method string, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.RevocationRegistryName, method, identity, sig, id)
}

// CreateRevocationRegistryEntry publishes an accumulator state
// transition.
func (c *Client) CreateRevocationRegistryEntry(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, revRegDefID interfaces.ResourceID, issuerID string, entry interfaces.RevocationRegistryEntry) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.RevocationRegistryName,
		"createRevocationRegistryEntry", identity, revRegDefID, issuerID, contracts.EntryToWire(entry))
}

// ResolveRevocationRegistryDefinition resolves a revocation registry
// definition by its 32-byte id.
func (c *Client) ResolveRevocationRegistryDefinition(ctx context.Context, id interfaces.ResourceID) (interfaces.RevocationRegistryRecord, error) {
	values, err := c.read(ctx, registry.RevocationRegistryName, "resolveRevocationRegistryDefinition", id)
	if err != nil {
		return interfaces.RevocationRegistryRecord{}, err
	}
	wire := *abi.ConvertType(values[0], new(contracts.RevocationRegistryRecordWire)).(*contracts.RevocationRegistryRecordWire)
	return contracts.RevocationRecordFromWire(wire), nil
}

// GetLatestAccumulator returns the registry's current accumulator value.
func (c *Client) GetLatestAccumulator(ctx context.Context, id interfaces.ResourceID) ([]byte, error) {
	values, err := c.read(ctx, registry.RevocationRegistryName, "getLatestAccumulator", id)
	if err != nil {
		return nil, err
	}
	return values[0].([]byte), nil
}

// RevocationDelta is the accumulated revocation state of a registry up to
// a timestamp: the latest accumulator and the net issued/revoked index
// sets, with the timestamp of the last entry folded in.
type RevocationDelta struct {
	Accum     []byte
	Issued    []uint32
	Revoked   []uint32
	Timestamp uint64
}

// FetchRevocationDelta reconstructs the revocation state of a registry
// from its entry event logs, folding every entry with a timestamp at or
// before the given one. A zero toTimestamp means all entries.
func (c *Client) FetchRevocationDelta(ctx context.Context, id interfaces.ResourceID, toTimestamp uint64) (*RevocationDelta, error) {
	entries, err := c.FetchRevocationEntries(ctx, id)
	if err != nil {
		return nil, err
	}

	delta := &RevocationDelta{}
	issued := make(map[uint32]bool)
	for _, entry := range entries {
		// Entry timestamps are caller-supplied and not necessarily
		// monotonic in ledger order, so filtered entries are skipped
		// rather than treated as the end of the log.
		if toTimestamp != 0 && entry.Timestamp > toTimestamp {
			continue
		}
		for _, idx := range entry.Issued {
			issued[idx] = true
		}
		for _, idx := range entry.Revoked {
			issued[idx] = false
		}
		delta.Accum = entry.CurrentAccum
		delta.Timestamp = entry.Timestamp
	}

	for idx, active := range issued {
		if active {
			delta.Issued = append(delta.Issued, idx)
		} else {
			delta.Revoked = append(delta.Revoked, idx)
		}
	}
	sort.Slice(delta.Issued, func(i, j int) bool { return delta.Issued[i] < delta.Issued[j] })
	sort.Slice(delta.Revoked, func(i, j int) bool { return delta.Revoked[i] < delta.Revoked[j] })
	return delta, nil
}

// FetchRevocationEntries returns every accumulator entry of a registry in
// ledger order, decoded from the entry event logs.
func (c *Client) FetchRevocationEntries(ctx context.Context, id interfaces.ResourceID) ([]interfaces.RevocationRegistryEntry, error) {
	spec, err := c.spec(registry.RevocationRegistryName)
	if err != nil {
		return nil, err
	}
	event := spec.ABI.Events["RevocationRegistryEntryCreated"]

	logs, err := c.filterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{spec.Address},
		Topics:    [][]common.Hash{{event.ID}, {common.Hash(id)}},
	})
	if err != nil {
		return nil, err
	}

	entries := make([]interfaces.RevocationRegistryEntry, 0, len(logs))
	for _, lg := range logs {
		_, _, values, err := c.set.DecodeEventLog(lg)
		if err != nil {
			return nil, fmt.Errorf("decoding revocation entry log: %w", err)
		}
		wire := *abi.ConvertType(values[2], new(contracts.RevocationEntryWire)).(*contracts.RevocationEntryWire)
		entries = append(entries, contracts.EntryFromWire(wire))
	}
	return entries, nil
}

// BuildStatusList renders a delta as a status list of maxCredNum entries:
// 0 for active (or never issued), 1 for revoked. Credential indexes are
// one-based.
func BuildStatusList(delta *RevocationDelta, maxCredNum uint32) []uint8 {
	list := make([]uint8, maxCredNum)
	for _, idx := range delta.Revoked {
		if idx >= 1 && idx <= maxCredNum {
			list[idx-1] = 1
		}
	}
	return list
}

// filterLogs queries the first backend that answers.
func (c *Client) filterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var lastErr error
	for _, backend := range c.backends {
		logs, err := backend.FilterLogs(ctx, q)
		if err == nil {
			return logs, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
