package node

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/registry"
)

// ethAPI is the "eth" JSON-RPC namespace of the dev ledger. Method names
// and shapes follow the execution client conventions so go-ethereum's
// ethclient works unchanged against it.
type ethAPI struct {
	ledger *Ledger
}

// ChainId spells out eth_chainId; the rpc package lowercases the first
// rune of the method name.
func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(api.ledger.ChainID())
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.ledger.Height())
}

func (api *ethAPI) GetTransactionCount(account common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	nonce, err := api.ledger.Nonce(account)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(nonce), nil
}

func (api *ethAPI) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	return api.ledger.ExecuteRawTransaction(input)
}

func (api *ethAPI) Call(args callArgs, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, errors.New("missing to address")
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}

	output, err := api.ledger.Call(from, *args.To, args.data())
	if err != nil {
		return nil, asRevertError(api.ledger.set, err)
	}
	return output, nil
}

func (api *ethAPI) GetTransactionReceipt(txHash common.Hash) (*types.Receipt, error) {
	receipt, ok := api.ledger.Receipt(txHash)
	if !ok {
		// null result, which clients map to "not found".
		return nil, nil
	}
	return receipt, nil
}

func (api *ethAPI) GetLogs(crit filterCriteria) ([]types.Log, error) {
	head := api.ledger.Height()
	from := resolveBlockNumber(crit.FromBlock, 0, head)
	to := resolveBlockNumber(crit.ToBlock, head, head)
	if from > to {
		return nil, fmt.Errorf("invalid block range %d..%d", from, to)
	}

	logs := api.ledger.FilterLogs(from, to, crit.Address, crit.Topics)
	if logs == nil {
		logs = []types.Log{}
	}
	return logs, nil
}

// callArgs mirrors the transaction object of eth_call. Calldata arrives
// in "input" from current clients and "data" from older ones.
type callArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (a callArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

// filterCriteria mirrors the eth_getLogs filter object.
type filterCriteria struct {
	FromBlock *rpc.BlockNumber `json:"fromBlock"`
	ToBlock   *rpc.BlockNumber `json:"toBlock"`
	Address   addressList      `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
}

// addressList accepts the single-address and address-array forms of the
// filter "address" field.
type addressList []common.Address

func (l *addressList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var list []common.Address
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var single common.Address
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = addressList{single}
	return nil
}

func resolveBlockNumber(bn *rpc.BlockNumber, def, head uint64) uint64 {
	if bn == nil {
		return def
	}
	if *bn < 0 {
		return head
	}
	return uint64(*bn)
}

// revertError is the JSON-RPC error shape of a reverted execution: code 3
// with the ABI-encoded revert reason as hex data, matching what execution
// clients return so ethclient surfaces it as an rpc.DataError.
type revertError struct {
	data []byte
}

func (e *revertError) Error() string {
	return "execution reverted"
}

func (e *revertError) ErrorCode() int {
	return 3
}

func (e *revertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}

// asRevertError encodes taxonomy errors as revert data. Anything else
// passes through as a plain RPC error.
func asRevertError(set *contracts.Set, err error) error {
	var ledgerErr *registry.Error
	if !errors.As(err, &ledgerErr) {
		return err
	}
	data, ok := set.EncodeRevert(ledgerErr)
	if !ok {
		return err
	}
	return &revertError{data: data}
}
