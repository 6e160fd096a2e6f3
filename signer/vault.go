package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/vault/api"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// VaultConfig configures a Vault-backed signer.
type VaultConfig struct {
	// Address of the Vault server, e.g. https://vault.example.com:8200.
	Address string

	// Token authenticates the client. Left empty, the api client falls
	// back to the VAULT_TOKEN environment variable.
	Token string

	// MountPath of the KV v2 secrets engine, e.g. "secret".
	MountPath string

	// KeyPath is the path prefix under the mount holding one secret per
	// account, keyed by the lowercase hex address, with the raw private
	// key hex in the "key" field.
	KeyPath string
}

// Vault signs with secp256k1 key material held in a Vault KV v2 engine.
// Keys are fetched on first use and cached; recoverable signing runs
// locally, which Vault's transit engine cannot do for secp256k1.
type Vault struct {
	client    *api.Client
	mountPath string
	keyPath   string

	mu     sync.Mutex
	cached map[interfaces.Account]*ecdsa.PrivateKey
}

// NewVault creates a Vault-backed signer.
func NewVault(cfg VaultConfig) (*Vault, error) {
	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Address
	apiCfg.Timeout = 30 * time.Second

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &Vault{
		client:    client,
		mountPath: strings.TrimSuffix(cfg.MountPath, "/"),
		keyPath:   strings.Trim(cfg.KeyPath, "/"),
		cached:    make(map[interfaces.Account]*ecdsa.PrivateKey),
	}, nil
}

// Store seals a hex-encoded private key into Vault and returns its
// account.
func (v *Vault) Store(ctx context.Context, hexKey string) (interfaces.Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("importing key: %w", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"key": strings.TrimPrefix(hexKey, "0x"),
		},
	}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.secretPath(account), payload); err != nil {
		return interfaces.Account{}, fmt.Errorf("writing key to vault: %w", err)
	}

	v.mu.Lock()
	v.cached[account] = key
	v.mu.Unlock()
	return account, nil
}

// Sign fetches the account's key from Vault if not cached and signs the
// digest.
func (v *Vault) Sign(account interfaces.Account, digest [32]byte) (interfaces.SignatureData, error) {
	v.mu.Lock()
	key, ok := v.cached[account]
	v.mu.Unlock()
	if !ok {
		fetched, err := v.fetch(context.Background(), account)
		if err != nil {
			return interfaces.SignatureData{}, err
		}
		v.mu.Lock()
		v.cached[account] = fetched
		v.mu.Unlock()
		key = fetched
	}
	return signDigest(key, digest)
}

// Accounts lists the secrets under the key path. Listing failures return
// the cached accounts only.
func (v *Vault) Accounts() []interfaces.Account {
	listed, err := v.client.Logical().List(v.listPath())
	if err != nil || listed == nil || listed.Data == nil {
		return v.cachedAccounts()
	}
	keys, ok := listed.Data["keys"].([]interface{})
	if !ok {
		return v.cachedAccounts()
	}

	var accounts []interfaces.Account
	for _, entry := range keys {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		account, err := interfaces.AccountFromHex(name)
		if err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return strings.Compare(accounts[i].Hex(), accounts[j].Hex()) < 0
	})
	return accounts
}

var _ interfaces.TransactionSigner = (*Vault)(nil)

func (v *Vault) fetch(ctx context.Context, account interfaces.Account) (*ecdsa.PrivateKey, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.secretPath(account))
	if err != nil {
		return nil, fmt.Errorf("reading key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNoSuchAccount, account.Hex())
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid vault response for %s", account.Hex())
	}
	hexKey, ok := data["key"].(string)
	if !ok {
		return nil, fmt.Errorf("no key material in vault secret for %s", account.Hex())
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding key material for %s: %w", account.Hex(), err)
	}
	if crypto.PubkeyToAddress(key.PublicKey) != account {
		return nil, fmt.Errorf("vault key material does not match account %s", account.Hex())
	}
	return key, nil
}

func (v *Vault) secretPath(account interfaces.Account) string {
	return fmt.Sprintf("%s/data/%s/%s", v.mountPath, v.keyPath, strings.ToLower(account.Hex()))
}

func (v *Vault) listPath() string {
	return fmt.Sprintf("%s/metadata/%s", v.mountPath, v.keyPath)
}

func (v *Vault) cachedAccounts() []interfaces.Account {
	v.mu.Lock()
	defer v.mu.Unlock()
	accounts := make([]interfaces.Account, 0, len(v.cached))
	for account := range v.cached {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return strings.Compare(accounts[i].Hex(), accounts[j].Hex()) < 0
	})
	return accounts
}
