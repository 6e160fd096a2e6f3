// Package signer provides the transaction signing backends of the client
// SDK: in-memory keys for tests and tooling, an encrypted keystore
// directory for operator machines, and Vault-backed key material for
// shared deployments. All backends produce recoverable secp256k1
// signatures over 32-byte digests, the format both the ledger
// transaction envelope and the endorsement protocol consume.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// Basic holds private keys in memory. Safe for concurrent use.
type Basic struct {
	mu   sync.RWMutex
	keys map[interfaces.Account]*ecdsa.PrivateKey
}

// NewBasic creates an empty in-memory signer.
func NewBasic() *Basic {
	return &Basic{keys: make(map[interfaces.Account]*ecdsa.PrivateKey)}
}

// Generate creates a fresh key and returns its account.
func (b *Basic) Generate() (interfaces.Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("generating key: %w", err)
	}
	return b.Add(key), nil
}

// Add registers an existing private key and returns its account.
func (b *Basic) Add(key *ecdsa.PrivateKey) interfaces.Account {
	account := crypto.PubkeyToAddress(key.PublicKey)
	b.mu.Lock()
	b.keys[account] = key
	b.mu.Unlock()
	return account
}

// ImportHex registers a hex-encoded private key, with or without a 0x
// prefix, and returns its account.
func (b *Basic) ImportHex(hexKey string) (interfaces.Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("importing key: %w", err)
	}
	return b.Add(key), nil
}

// Sign produces a recoverable signature over digest with the account's
// key.
func (b *Basic) Sign(account interfaces.Account, digest [32]byte) (interfaces.SignatureData, error) {
	b.mu.RLock()
	key, ok := b.keys[account]
	b.mu.RUnlock()
	if !ok {
		return interfaces.SignatureData{}, fmt.Errorf("%w: %s", interfaces.ErrNoSuchAccount, account.Hex())
	}
	return signDigest(key, digest)
}

// Accounts lists the held accounts in stable order.
func (b *Basic) Accounts() []interfaces.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	accounts := make([]interfaces.Account, 0, len(b.keys))
	for account := range b.keys {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return strings.Compare(accounts[i].Hex(), accounts[j].Hex()) < 0
	})
	return accounts
}

var _ interfaces.TransactionSigner = (*Basic)(nil)

func signDigest(key *ecdsa.PrivateKey, digest [32]byte) (interfaces.SignatureData, error) {
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		return interfaces.SignatureData{}, fmt.Errorf("signing digest: %w", err)
	}
	return interfaces.NewSignatureData(raw)
}
