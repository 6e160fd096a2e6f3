package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// Wire layouts of the record tuples declared in the contract specs.
// Field names follow the abi package's CamelCase mapping of the tuple
// component names, which is what lets abi.ConvertType translate unpacked
// anonymous tuples into these types.

// DidMetadataWire mirrors the DID metadata tuple.
type DidMetadataWire struct {
	Owner       common.Address
	Sender      common.Address
	Created     *big.Int
	Updated     *big.Int
	VersionId   *big.Int
	Deactivated bool
}

// DidRecordWire mirrors the resolveDid return tuple.
type DidRecordWire struct {
	Document []byte
	Metadata DidMetadataWire
}

// ResourceMetadataWire mirrors the metadata tuple of immutable resources.
type ResourceMetadataWire struct {
	Owner     common.Address
	Sender    common.Address
	Created   *big.Int
	Updated   *big.Int
	VersionId *big.Int
}

// SchemaRecordWire mirrors the resolveSchema return tuple.
type SchemaRecordWire struct {
	Schema   []byte
	Metadata ResourceMetadataWire
}

// CredentialDefinitionRecordWire mirrors the resolveCredentialDefinition
// return tuple.
type CredentialDefinitionRecordWire struct {
	CredDef  []byte
	Metadata ResourceMetadataWire
}

// RevocationRegistryRecordWire mirrors the
// resolveRevocationRegistryDefinition return tuple.
type RevocationRegistryRecordWire struct {
	RevRegDef []byte
	Metadata  ResourceMetadataWire
	Status    uint8
}

// RevocationEntryWire mirrors the accumulator entry tuple.
type RevocationEntryWire struct {
	CurrentAccum []byte
	PrevAccum    []byte
	Issued       []uint32
	Revoked      []uint32
	Timestamp    uint64
}

// UpgradeProposalWire mirrors the getProposal return tuple.
type UpgradeProposalWire struct {
	Proposer  common.Address
	Created   *big.Int
	Approvals []common.Address
	Applied   bool
}

func metadataToWire(m interfaces.ResourceMetadata) ResourceMetadataWire {
	return ResourceMetadataWire{
		Owner:     m.Owner,
		Sender:    m.Sender,
		Created:   big.NewInt(m.Created),
		Updated:   big.NewInt(m.Updated),
		VersionId: new(big.Int).SetUint64(m.VersionID),
	}
}

func metadataFromWire(w ResourceMetadataWire) interfaces.ResourceMetadata {
	return interfaces.ResourceMetadata{
		Owner:     w.Owner,
		Sender:    w.Sender,
		Created:   w.Created.Int64(),
		Updated:   w.Updated.Int64(),
		VersionID: w.VersionId.Uint64(),
	}
}

// DidRecordToWire converts a registry DID record to its wire tuple.
func DidRecordToWire(rec interfaces.DidRecord) DidRecordWire {
	return DidRecordWire{
		Document: rec.Document,
		Metadata: DidMetadataWire{
			Owner:       rec.Metadata.Owner,
			Sender:      rec.Metadata.Sender,
			Created:     big.NewInt(rec.Metadata.Created),
			Updated:     big.NewInt(rec.Metadata.Updated),
			VersionId:   new(big.Int).SetUint64(rec.Metadata.VersionID),
			Deactivated: rec.Metadata.Deactivated,
		},
	}
}

// DidRecordFromWire converts a wire tuple back to a registry DID record.
func DidRecordFromWire(w DidRecordWire) interfaces.DidRecord {
	return interfaces.DidRecord{
		Document: w.Document,
		Metadata: interfaces.DidMetadata{
			ResourceMetadata: interfaces.ResourceMetadata{
				Owner:     w.Metadata.Owner,
				Sender:    w.Metadata.Sender,
				Created:   w.Metadata.Created.Int64(),
				Updated:   w.Metadata.Updated.Int64(),
				VersionID: w.Metadata.VersionId.Uint64(),
			},
			Deactivated: w.Metadata.Deactivated,
		},
	}
}

// SchemaRecordToWire converts a registry schema record to its wire tuple.
func SchemaRecordToWire(rec interfaces.SchemaRecord) SchemaRecordWire {
	return SchemaRecordWire{Schema: rec.Schema, Metadata: metadataToWire(rec.Metadata)}
}

// SchemaRecordFromWire converts a wire tuple back to a registry schema
// record.
func SchemaRecordFromWire(w SchemaRecordWire) interfaces.SchemaRecord {
	return interfaces.SchemaRecord{Schema: w.Schema, Metadata: metadataFromWire(w.Metadata)}
}

// CredentialDefinitionRecordToWire converts a registry credential
// definition record to its wire tuple.
func CredentialDefinitionRecordToWire(rec interfaces.CredentialDefinitionRecord) CredentialDefinitionRecordWire {
	return CredentialDefinitionRecordWire{CredDef: rec.CredDef, Metadata: metadataToWire(rec.Metadata)}
}

// CredentialDefinitionRecordFromWire converts a wire tuple back to a
// registry credential definition record.
func CredentialDefinitionRecordFromWire(w CredentialDefinitionRecordWire) interfaces.CredentialDefinitionRecord {
	return interfaces.CredentialDefinitionRecord{CredDef: w.CredDef, Metadata: metadataFromWire(w.Metadata)}
}

// RevocationRecordToWire converts a registry revocation registry record
// to its wire tuple.
func RevocationRecordToWire(rec interfaces.RevocationRegistryRecord) RevocationRegistryRecordWire {
	return RevocationRegistryRecordWire{
		RevRegDef: rec.RevRegDef,
		Metadata:  metadataToWire(rec.Metadata),
		Status:    uint8(rec.Status),
	}
}

// RevocationRecordFromWire converts a wire tuple back to a registry
// revocation registry record.
func RevocationRecordFromWire(w RevocationRegistryRecordWire) interfaces.RevocationRegistryRecord {
	return interfaces.RevocationRegistryRecord{
		RevRegDef: w.RevRegDef,
		Metadata:  metadataFromWire(w.Metadata),
		Status:    interfaces.RevocationStatus(w.Status),
	}
}

// EntryToWire converts a revocation registry entry to its wire tuple.
func EntryToWire(entry interfaces.RevocationRegistryEntry) RevocationEntryWire {
	return RevocationEntryWire{
		CurrentAccum: entry.CurrentAccum,
		PrevAccum:    entry.PrevAccum,
		Issued:       entry.Issued,
		Revoked:      entry.Revoked,
		Timestamp:    entry.Timestamp,
	}
}

// EntryFromWire converts a wire tuple back to a revocation registry
// entry.
func EntryFromWire(w RevocationEntryWire) interfaces.RevocationRegistryEntry {
	return interfaces.RevocationRegistryEntry{
		CurrentAccum: w.CurrentAccum,
		PrevAccum:    w.PrevAccum,
		Issued:       w.Issued,
		Revoked:      w.Revoked,
		Timestamp:    w.Timestamp,
	}
}

// ProposalToWire converts an upgrade proposal to its wire tuple.
func ProposalToWire(p registry.UpgradeProposal) UpgradeProposalWire {
	approvals := p.Approvals
	if approvals == nil {
		approvals = []common.Address{}
	}
	return UpgradeProposalWire{
		Proposer:  p.Proposer,
		Created:   big.NewInt(p.Created),
		Approvals: approvals,
		Applied:   p.Applied,
	}
}

// ProposalFromWire converts a wire tuple back to an upgrade proposal.
func ProposalFromWire(w UpgradeProposalWire) registry.UpgradeProposal {
	return registry.UpgradeProposal{
		Proposer:  w.Proposer,
		Created:   w.Created.Int64(),
		Approvals: w.Approvals,
		Applied:   w.Applied,
	}
}
