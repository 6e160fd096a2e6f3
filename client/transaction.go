package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// ErrTransactionUnsigned is returned when an unsigned transaction is
// submitted. The check happens before any network traffic.
var ErrTransactionUnsigned = errors.New("transaction is not signed")

// receiptPollInterval is the delay between receipt polls after submission.
const receiptPollInterval = 100 * time.Millisecond

// Transaction is one registry write under construction: calldata bound to
// a contract, a sender and a nonce, plus the EIP-155 signature once set.
type Transaction struct {
	To       interfaces.Account
	From     interfaces.Account
	Nonce    uint64
	Data     []byte
	ChainID  *big.Int
	GasLimit uint64

	Signature interfaces.SignatureData
}

// BuildTransaction packs a method call against the named contract and
// fetches the sender's pending nonce. Unknown contracts and methods fail
// here, before anything is signed.
func (c *Client) BuildTransaction(ctx context.Context, contract, method string, params []any, from interfaces.Account) (*Transaction, error) {
	spec, err := c.spec(contract)
	if err != nil {
		return nil, err
	}
	data, err := spec.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("packing %s.%s: %w", contract, method, err)
	}

	nonce, err := c.pendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce for %s: %w", from.Hex(), err)
	}

	return &Transaction{
		To:       spec.Address,
		From:     from,
		Nonce:    nonce,
		Data:     data,
		ChainID:  c.ChainID(),
		GasLimit: c.gasLimit,
	}, nil
}

// ethTx builds the legacy transaction shape: gas price zero, fixed gas
// limit, no value.
func (t *Transaction) ethTx() *types.Transaction {
	to := t.To
	return types.NewTx(&types.LegacyTx{
		Nonce:    t.Nonce,
		To:       &to,
		Gas:      t.GasLimit,
		GasPrice: new(big.Int),
		Value:    new(big.Int),
		Data:     t.Data,
	})
}

// SigningBytes returns the EIP-155 signing digest of the transaction.
func (t *Transaction) SigningBytes() [32]byte {
	return types.NewEIP155Signer(t.ChainID).Hash(t.ethTx())
}

// SetSignature attaches a signature produced over SigningBytes.
func (t *Transaction) SetSignature(sig interfaces.SignatureData) {
	t.Signature = sig
}

// SignWith signs the transaction with the key the signer holds for the
// sender account.
func (t *Transaction) SignWith(signer interfaces.TransactionSigner) error {
	sig, err := signer.Sign(t.From, t.SigningBytes())
	if err != nil {
		return err
	}
	t.Signature = sig
	return nil
}

// Raw returns the RLP encoding of the signed transaction. Unsigned
// transactions fail ErrTransactionUnsigned.
func (t *Transaction) Raw() ([]byte, error) {
	if t.Signature.IsZero() {
		return nil, ErrTransactionUnsigned
	}
	signed, err := t.ethTx().WithSignature(types.NewEIP155Signer(t.ChainID), t.Signature.Raw())
	if err != nil {
		return nil, fmt.Errorf("attaching signature: %w", err)
	}
	return signed.MarshalBinary()
}

// Submit sends the signed transaction to the first backend that accepts
// it and returns the transaction hash.
func (c *Client) Submit(ctx context.Context, tx *Transaction) (common.Hash, error) {
	raw, err := tx.Raw()
	if err != nil {
		return common.Hash{}, err
	}

	var lastErr error
	for _, backend := range c.backends {
		hash, err := backend.SendRawTransaction(ctx, raw)
		if err == nil {
			return hash, nil
		}
		lastErr = err
		c.log.Debug("Transaction submission failed, trying next backend", "err", err)
	}
	return common.Hash{}, fmt.Errorf("submitting transaction: %w", lastErr)
}

// SubmitAndWait submits the transaction and polls until its receipt
// appears. Reverted transactions replay as a call to surface the decoded
// ledger error.
func (c *Client) SubmitAndWait(ctx context.Context, tx *Transaction) (*types.Receipt, error) {
	hash, err := c.Submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	receipt, err := c.WaitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, c.revertReason(ctx, tx)
	}
	return receipt, nil
}

// WaitReceipt polls the backends until the receipt of hash appears or the
// context ends.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		for _, backend := range c.backends {
			receipt, err := backend.TransactionReceipt(ctx, hash)
			if err == nil {
				return receipt, nil
			}
			if !errors.Is(err, ethereum.NotFound) {
				c.log.Debug("Receipt lookup failed", "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// revertReason replays the calldata as a call against current state. The
// backends decode taxonomy reverts into registry errors, so the caller
// gets the exact ledger error the execution failed with.
func (c *Client) revertReason(ctx context.Context, tx *Transaction) error {
	for _, backend := range c.backends {
		if _, err := backend.CallContract(ctx, tx.From, tx.To, tx.Data); err != nil {
			return fmt.Errorf("transaction reverted: %w", err)
		}
	}
	return errors.New("transaction reverted")
}

// pendingNonce fetches the sender's pending nonce from the first backend
// that answers.
func (c *Client) pendingNonce(ctx context.Context, account interfaces.Account) (uint64, error) {
	var lastErr error
	for _, backend := range c.backends {
		nonce, err := backend.PendingNonceAt(ctx, account)
		if err == nil {
			return nonce, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// submitWrite packs, signs and submits one registry write, waiting for
// its receipt. The shared path of every per-registry helper.
func (c *Client) submitWrite(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, contract, method string, params ...any) (*types.Receipt, error) {
	tx, err := c.BuildTransaction(ctx, contract, method, params, from)
	if err != nil {
		return nil, err
	}
	if err := tx.SignWith(signer); err != nil {
		return nil, fmt.Errorf("signing %s.%s: %w", contract, method, err)
	}
	return c.SubmitAndWait(ctx, tx)
}
