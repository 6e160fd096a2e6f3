package client

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// EndorsementData is the signing material of one endorsed write: the raw
// canonical signing input and its keccak-256 digest. The identity owner
// signs the digest with any TransactionSigner; the resulting signature is
// submitted by whoever carries the transaction.
type EndorsementData struct {
	SigningInput []byte
	Digest       [32]byte
}

// Sign produces the identity owner's endorsement signature over the
// digest.
func (e EndorsementData) Sign(signer interfaces.TransactionSigner, identity interfaces.Account) (interfaces.SignatureData, error) {
	return signer.Sign(identity, e.Digest)
}

// BuildSignedTransaction pairs an endorsement signature with the signed
// variant of a registry method: the calldata targets `<method>Signed`
// with (identity, v, r, s, params...) so any funded account can submit
// the identity owner's write.
func (c *Client) BuildSignedTransaction(ctx context.Context, contract, method string, identity interfaces.Account, sig interfaces.SignatureData, from interfaces.Account, params ...any) (*Transaction, error) {
	args := append([]any{identity, sig.V, sig.R, sig.S}, params...)
	return c.BuildTransaction(ctx, contract, method+"Signed", args, from)
}

// submitSigned is the endorsed counterpart of submitWrite: it builds the
// `<method>Signed` transaction, signs it with the submitter's key and
// waits for the receipt.
func (c *Client) submitSigned(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, contract, method string, identity interfaces.Account, sig interfaces.SignatureData, params ...any) (*types.Receipt, error) {
	tx, err := c.BuildSignedTransaction(ctx, contract, method, identity, sig, from, params...)
	if err != nil {
		return nil, err
	}
	if err := tx.SignWith(signer); err != nil {
		return nil, err
	}
	return c.SubmitAndWait(ctx, tx)
}
