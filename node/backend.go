package node

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// Backend adapts an in-process Ledger to the LedgerBackend surface, so
// the SDK and tests run against a node without going through HTTP.
type Backend struct {
	ledger *Ledger
}

// NewBackend wraps the ledger.
func NewBackend(ledger *Ledger) *Backend {
	return &Backend{ledger: ledger}
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.ledger.ChainID(), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.ledger.Height(), nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account interfaces.Account) (uint64, error) {
	return b.ledger.Nonce(account)
}

// CallContract executes against current state. Registry reverts come
// back as taxonomy errors directly, no revert-data round trip involved.
func (b *Backend) CallContract(ctx context.Context, from, to interfaces.Account, data []byte) ([]byte, error) {
	return b.ledger.Call(from, to, data)
}

func (b *Backend) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	return b.ledger.ExecuteRawTransaction(rawTx)
}

// TransactionReceipt reports ethereum.NotFound for unknown transactions,
// matching the JSON-RPC client behavior the SDK polls against.
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, ok := b.ledger.Receipt(txHash)
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	head := b.ledger.Height()
	from := uint64(0)
	if q.FromBlock != nil && q.FromBlock.Sign() >= 0 {
		from = q.FromBlock.Uint64()
	}
	to := head
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 {
		to = q.ToBlock.Uint64()
	}
	return b.ledger.FilterLogs(from, to, q.Addresses, q.Topics), nil
}

var _ interfaces.LedgerBackend = (*Backend)(nil)
