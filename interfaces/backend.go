package interfaces

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LedgerBackend is the read and submit surface of a ledger node. It is
// implemented by the JSON-RPC client transport and by the in-process
// development node, so everything above it runs against either.
type LedgerBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account Account) (uint64, error)
	CallContract(ctx context.Context, from, to Account, data []byte) ([]byte, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// TransactionSigner produces recoverable signatures over 32-byte digests
// for the accounts it holds keys for.
type TransactionSigner interface {
	Sign(account Account, digest [32]byte) (SignatureData, error)
	Accounts() []Account
}
