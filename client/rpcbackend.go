package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// RPCBackend is the JSON-RPC transport of the SDK. It wraps go-ethereum's
// client and maps custom-error revert data back into registry taxonomy
// errors, so errors.Is against the registry sentinels holds on this side
// of the wire too.
type RPCBackend struct {
	rpc *rpc.Client
	eth *ethclient.Client
	set *contracts.Set
	url string
}

// DialBackend connects to a node's JSON-RPC endpoint. Reverts decode
// against the given contract set.
func DialBackend(url string, set *contracts.Set) (*RPCBackend, error) {
	rpcClient, err := rpc.Dial(url)
	if err != nil {
		return nil, err
	}
	return &RPCBackend{
		rpc: rpcClient,
		eth: ethclient.NewClient(rpcClient),
		set: set,
		url: url,
	}, nil
}

// URL returns the endpoint the backend was dialed against.
func (b *RPCBackend) URL() string {
	return b.url
}

// Close releases the underlying connection.
func (b *RPCBackend) Close() {
	b.rpc.Close()
}

func (b *RPCBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.eth.ChainID(ctx)
}

func (b *RPCBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.eth.BlockNumber(ctx)
}

func (b *RPCBackend) PendingNonceAt(ctx context.Context, account interfaces.Account) (uint64, error) {
	return b.eth.PendingNonceAt(ctx, account)
}

// CallContract executes an eth_call against latest state. Revert data
// carried in the RPC error decodes into a taxonomy error when the
// selector is known, and into the plain Error(string) reason otherwise.
func (b *RPCBackend) CallContract(ctx context.Context, from, to interfaces.Account, data []byte) ([]byte, error) {
	var result hexutil.Bytes
	err := b.rpc.CallContext(ctx, &result, "eth_call", map[string]any{
		"from":  from,
		"to":    to,
		"input": hexutil.Bytes(data),
	}, "latest")
	if err != nil {
		return nil, b.decodeCallError(err)
	}
	return result, nil
}

func (b *RPCBackend) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var hash common.Hash
	if err := b.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(rawTx)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (b *RPCBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return b.eth.TransactionReceipt(ctx, txHash)
}

func (b *RPCBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return b.eth.FilterLogs(ctx, q)
}

// decodeCallError extracts revert data from an execution-reverted RPC
// error and maps it back to the ledger error it encodes.
func (b *RPCBackend) decodeCallError(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return err
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return err
	}

	if ledgerErr, ok := b.set.DecodeRevert(data); ok {
		return ledgerErr
	}
	if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
		return fmt.Errorf("execution reverted: %s", reason)
	}
	return err
}

var _ interfaces.LedgerBackend = (*RPCBackend)(nil)
