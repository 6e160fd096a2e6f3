package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

const testKeyHex = "8bbbb1b345af56b560a5b20bd4b0ed1cd8cc9958a16262bc75118453cb546df7"

func TestBasicImportAndSign(t *testing.T) {
	basic := NewBasic()
	account, err := basic.ImportHex(testKeyHex)
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), account)

	digest := [32]byte{1, 2, 3}
	sig, err := basic.Sign(account, digest)
	require.NoError(t, err)

	recovered, err := endorsement.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, account, recovered)
}

func TestBasicUnknownAccount(t *testing.T) {
	basic := NewBasic()
	_, err := basic.Sign(interfaces.Account{0x01}, [32]byte{})
	require.ErrorIs(t, err, interfaces.ErrNoSuchAccount)
}

func TestBasicAccountsSorted(t *testing.T) {
	basic := NewBasic()
	for i := 0; i < 5; i++ {
		_, err := basic.Generate()
		require.NoError(t, err)
	}

	accounts := basic.Accounts()
	require.Len(t, accounts, 5)
	for i := 1; i < len(accounts); i++ {
		assert.Less(t, accounts[i-1].Hex(), accounts[i].Hex())
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewKeystore(dir, []byte("correct horse"))
	require.NoError(t, err)

	account, err := ks.ImportHex(testKeyHex)
	require.NoError(t, err)

	digest := [32]byte{42}
	sig, err := ks.Sign(account, digest)
	require.NoError(t, err)

	recovered, err := endorsement.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, account, recovered)

	// A fresh keystore over the same directory unseals the same key.
	reopened, err := NewKeystore(dir, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Account{account}, reopened.Accounts())

	sig2, err := reopened.Sign(account, digest)
	require.NoError(t, err)
	assert.Equal(t, sig, sig2)
}

func TestKeystoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewKeystore(dir, []byte("right"))
	require.NoError(t, err)

	account, err := ks.Generate()
	require.NoError(t, err)

	wrong, err := NewKeystore(dir, []byte("wrong"))
	require.NoError(t, err)
	_, err = wrong.Sign(account, [32]byte{1})
	require.Error(t, err)
}

func TestKeystoreUnknownAccount(t *testing.T) {
	ks, err := NewKeystore(t.TempDir(), []byte("pass"))
	require.NoError(t, err)

	_, err = ks.Sign(interfaces.Account{0xaa}, [32]byte{})
	require.ErrorIs(t, err, interfaces.ErrNoSuchAccount)
}
