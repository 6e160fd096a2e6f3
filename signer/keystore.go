package signer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/argon2"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// Argon2id parameters of the keystore KDF.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfKeyLen  = 32
)

const keystoreKDF = "argon2id"

// keystoreFile is the on-disk layout of one sealed key. The private key
// is AES-256-GCM sealed under an argon2id-derived key; the nonce prefixes
// the ciphertext.
type keystoreFile struct {
	Address    string `json:"address"`
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

// Keystore stores one sealed key file per account under a directory.
// Files are named after the lowercase hex account address. Keys unseal
// lazily on first use and stay cached for the keystore's lifetime.
type Keystore struct {
	dir        string
	passphrase []byte

	mu       sync.Mutex
	unsealed map[interfaces.Account]*Basic
}

// NewKeystore opens (or creates) a keystore directory.
func NewKeystore(dir string, passphrase []byte) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating keystore directory: %w", err)
	}
	return &Keystore{
		dir:        dir,
		passphrase: passphrase,
		unsealed:   make(map[interfaces.Account]*Basic),
	}, nil
}

// Generate creates a fresh key, seals it to disk and returns its account.
func (k *Keystore) Generate() (interfaces.Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("generating key: %w", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	if err := k.seal(account, crypto.FromECDSA(key)); err != nil {
		return interfaces.Account{}, err
	}
	return account, nil
}

// ImportHex seals a hex-encoded private key to disk and returns its
// account.
func (k *Keystore) ImportHex(hexKey string) (interfaces.Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("importing key: %w", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	if err := k.seal(account, crypto.FromECDSA(key)); err != nil {
		return interfaces.Account{}, err
	}
	return account, nil
}

// Sign unseals the account's key if needed and signs the digest.
func (k *Keystore) Sign(account interfaces.Account, digest [32]byte) (interfaces.SignatureData, error) {
	k.mu.Lock()
	cached, ok := k.unsealed[account]
	k.mu.Unlock()
	if ok {
		return cached.Sign(account, digest)
	}

	key, err := k.unseal(account)
	if err != nil {
		return interfaces.SignatureData{}, err
	}

	basic := NewBasic()
	basic.Add(key)
	k.mu.Lock()
	k.unsealed[account] = basic
	k.mu.Unlock()

	return basic.Sign(account, digest)
}

// Accounts lists the sealed accounts found in the keystore directory.
func (k *Keystore) Accounts() []interfaces.Account {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		return nil
	}
	var accounts []interfaces.Account
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		account, err := interfaces.AccountFromHex(strings.TrimSuffix(entry.Name(), ".json"))
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

var _ interfaces.TransactionSigner = (*Keystore)(nil)

func (k *Keystore) path(account interfaces.Account) string {
	return filepath.Join(k.dir, strings.ToLower(account.Hex())+".json")
}

func (k *Keystore) seal(account interfaces.Account, keyBytes []byte) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	aead, err := newAEAD(k.passphrase, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, keyBytes, account.Bytes())

	raw, err := json.MarshalIndent(keystoreFile{
		Address:    strings.ToLower(account.Hex()),
		KDF:        keystoreKDF,
		Salt:       hex.EncodeToString(salt),
		Ciphertext: hex.EncodeToString(sealed),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding keystore file: %w", err)
	}
	if err := os.WriteFile(k.path(account), raw, 0600); err != nil {
		return fmt.Errorf("writing keystore file: %w", err)
	}
	return nil
}

func (k *Keystore) unseal(account interfaces.Account) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(k.path(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNoSuchAccount, account.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore file: %w", err)
	}

	var file keystoreFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("malformed keystore file for %s: %w", account.Hex(), err)
	}
	if file.KDF != keystoreKDF {
		return nil, fmt.Errorf("unsupported keystore KDF %q", file.KDF)
	}
	salt, err := hex.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("malformed keystore salt: %w", err)
	}
	sealed, err := hex.DecodeString(file.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("malformed keystore ciphertext: %w", err)
	}

	aead, err := newAEAD(k.passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("keystore ciphertext too short")
	}
	keyBytes, err := aead.Open(nil, sealed[:aead.NonceSize()], sealed[aead.NonceSize():], account.Bytes())
	if err != nil {
		return nil, fmt.Errorf("unsealing key for %s: %w", account.Hex(), err)
	}

	key, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("decoding unsealed key: %w", err)
	}
	return key, nil
}

func newAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	derived := argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aead, nil
}
