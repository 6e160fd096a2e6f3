// Package node implements the development ledger: a single in-process
// chain that executes the identity registry contract set over a state
// store and speaks the minimal eth JSON-RPC surface the SDK uses.
//
// Every accepted transaction becomes its own block. Registry operations
// validate before they write, so a reverted transaction leaves state
// untouched; eth_call executions run against a copy-on-write overlay and
// never persist. There is no gas accounting and no consensus, the
// validator registry only manages the published validator set.
package node

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/metrics"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/ruteri/identity-registry-backend/state"
)

// DevChainID is the chain id of the development ledger.
const DevChainID = 1337

// Transaction gas ceiling reported in receipts. The ledger does no gas
// accounting; the value only keeps standard tooling happy.
const txGasUsed = 0

// Node-owned state buckets, disjoint from the registry buckets.
var (
	bucketNonces = []byte("node_nonces")
	bucketMeta   = []byte("node_meta")
)

var heightKey = []byte("height")

// Config configures a Ledger.
type Config struct {
	// ChainID defaults to DevChainID.
	ChainID *big.Int

	// Addresses is the contract deployment table, defaulting to
	// contracts.DefaultAddresses.
	Addresses registry.Addresses

	// Genesis seeds the trustee and validator sets of a fresh store.
	Genesis registry.Genesis

	Log *slog.Logger
}

// Ledger executes registry transactions over one state store. Receipts
// and logs live in memory; registry state and account nonces persist in
// the store.
type Ledger struct {
	log     *slog.Logger
	chainID *big.Int
	signer  types.Signer
	set     *contracts.Set
	addrs   registry.Addresses
	store   interfaces.StateStore

	mu       sync.Mutex
	regs     *registry.Registries
	sink     *routedSink
	height   uint64
	receipts map[common.Hash]*types.Receipt
	logs     []types.Log
}

// routedSink forwards registry events to the collector of the currently
// executing transaction. Calls outside an execution discard events.
type routedSink struct {
	current registry.EventSink
}

func (r *routedSink) Emit(contract, event string, args ...any) {
	if r.current != nil {
		r.current.Emit(contract, event, args...)
	}
}

// logCollector turns registry events into ledger logs as they are
// emitted. The first conversion failure poisons the collector; the
// ledger treats that as an internal execution fault.
type logCollector struct {
	set  *contracts.Set
	logs []types.Log
	err  error
}

func (c *logCollector) Emit(contract, event string, args ...any) {
	if c.err != nil {
		return
	}
	lg, err := c.set.EventLog(contract, event, args...)
	if err != nil {
		c.err = err
		return
	}
	c.logs = append(c.logs, lg)
}

// NewLedger opens a ledger over the given store, applying genesis when
// the store is fresh.
func NewLedger(store interfaces.StateStore, cfg Config) (*Ledger, error) {
	chainID := cfg.ChainID
	if chainID == nil {
		chainID = big.NewInt(DevChainID)
	}
	addrs := cfg.Addresses
	if addrs == (registry.Addresses{}) {
		addrs = contracts.DefaultAddresses
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	set, err := contracts.New(addrs)
	if err != nil {
		return nil, err
	}

	sink := &routedSink{}
	regs, err := registry.NewRegistries(store, sink, addrs, cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("applying genesis: %w", err)
	}

	height, err := loadHeight(store)
	if err != nil {
		return nil, err
	}

	return &Ledger{
		log:      log,
		chainID:  chainID,
		signer:   types.LatestSignerForChainID(chainID),
		set:      set,
		addrs:    addrs,
		store:    store,
		regs:     regs,
		sink:     sink,
		height:   height,
		receipts: make(map[common.Hash]*types.Receipt),
	}, nil
}

// ChainID returns the ledger chain id.
func (l *Ledger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainID)
}

// Contracts returns the deployed contract set.
func (l *Ledger) Contracts() *contracts.Set {
	return l.set
}

// Height returns the current block height.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Nonce returns the next expected nonce of an account.
func (l *Ledger) Nonce(account common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nonce(account)
}

// Receipt returns the receipt of an executed transaction.
func (l *Ledger) Receipt(txHash common.Hash) (*types.Receipt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	receipt, ok := l.receipts[txHash]
	return receipt, ok
}

// ExecuteRawTransaction decodes, validates and executes a signed raw
// transaction. Admission failures (malformed encoding, wrong chain,
// bad nonce, missing recipient) return an error with no receipt;
// execution failures produce a status-0 receipt and consume the nonce.
func (l *Ledger) ExecuteRawTransaction(rawTx []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(rawTx); err != nil {
		return common.Hash{}, fmt.Errorf("malformed transaction: %w", err)
	}
	sender, err := types.Sender(l.signer, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("recovering sender: %w", err)
	}
	if tx.To() == nil {
		return common.Hash{}, errors.New("contract deployment is not supported")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	expected, err := l.nonce(sender)
	if err != nil {
		return common.Hash{}, err
	}
	if tx.Nonce() != expected {
		return common.Hash{}, fmt.Errorf("invalid nonce %d for %s, expected %d", tx.Nonce(), sender.Hex(), expected)
	}

	txctx := registry.TxContext{
		Sender:      sender,
		BlockNumber: l.height + 1,
		Time:        time.Now().Unix(),
	}

	collector := &logCollector{set: l.set}
	l.sink.current = collector
	result := l.execute(l.regs, txctx, *tx.To(), tx.Data())
	l.sink.current = nil

	if result.err == nil && collector.err != nil {
		return common.Hash{}, fmt.Errorf("encoding event logs: %w", collector.err)
	}

	if err := l.setNonce(sender, expected+1); err != nil {
		return common.Hash{}, err
	}
	l.height++
	if err := l.storeHeight(); err != nil {
		return common.Hash{}, err
	}

	receipt := l.sealReceipt(tx, collector.logs, result.err == nil)
	l.receipts[tx.Hash()] = receipt
	for _, lg := range receipt.Logs {
		l.logs = append(l.logs, *lg)
	}

	outcome := "ok"
	if result.err != nil {
		outcome = "reverted"
	}
	metrics.TransactionsExecuted.WithLabelValues(result.contract, result.method, outcome).Inc()
	l.log.Debug("executed transaction",
		"tx", tx.Hash().Hex(), "from", sender.Hex(),
		"contract", result.contract, "method", result.method,
		"block", l.height, "outcome", outcome)

	return tx.Hash(), nil
}

// Call executes calldata against current state without persisting any
// effect. Registry reverts come back as taxonomy errors.
func (l *Ledger) Call(from, to common.Address, data []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	overlay := state.NewOverlay(l.store)
	regs, err := registry.NewRegistries(overlay, registry.NopSink{}, l.addrs, registry.Genesis{})
	if err != nil {
		return nil, fmt.Errorf("preparing call state: %w", err)
	}

	txctx := registry.TxContext{
		Sender:      from,
		BlockNumber: l.height,
		Time:        time.Now().Unix(),
	}
	result := l.execute(regs, txctx, to, data)
	return result.output, result.err
}

// FilterLogs returns the logs of successful transactions in the block
// range [from, to] matching the address and topic filters. Empty filter
// positions match anything.
func (l *Ledger) FilterLogs(from, to uint64, addresses []common.Address, topics [][]common.Hash) []types.Log {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []types.Log
	for _, lg := range l.logs {
		if lg.BlockNumber < from || lg.BlockNumber > to {
			continue
		}
		if matchesFilter(lg, addresses, topics) {
			matched = append(matched, lg)
		}
	}
	return matched
}

func matchesFilter(lg types.Log, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 && !containsAddress(addresses, lg.Address) {
		return false
	}
	if len(topics) > len(lg.Topics) {
		return false
	}
	for i, alternatives := range topics {
		if len(alternatives) == 0 {
			continue
		}
		if !containsHash(alternatives, lg.Topics[i]) {
			return false
		}
	}
	return true
}

func containsAddress(list []common.Address, item common.Address) bool {
	for _, entry := range list {
		if entry == item {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, item common.Hash) bool {
	for _, entry := range list {
		if entry == item {
			return true
		}
	}
	return false
}

func (l *Ledger) sealReceipt(tx *types.Transaction, logs []types.Log, ok bool) *types.Receipt {
	blockHash := blockHashAt(l.height)
	blockNumber := new(big.Int).SetUint64(l.height)

	status := types.ReceiptStatusFailed
	recLogs := []*types.Log{}
	if ok {
		status = types.ReceiptStatusSuccessful
		for i := range logs {
			lg := logs[i]
			lg.BlockNumber = l.height
			lg.BlockHash = blockHash
			lg.TxHash = tx.Hash()
			lg.TxIndex = 0
			lg.Index = uint(i)
			recLogs = append(recLogs, &lg)
		}
	}

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: txGasUsed,
		Logs:              recLogs,
		TxHash:            tx.Hash(),
		GasUsed:           txGasUsed,
		BlockHash:         blockHash,
		BlockNumber:       blockNumber,
		TransactionIndex:  0,
	}
	receipt.Bloom = types.CreateBloom(receipt)
	return receipt
}

// blockHashAt derives the deterministic pseudo block hash for a height.
func blockHashAt(height uint64) common.Hash {
	var buf [16]byte
	copy(buf[:8], []byte("devblock"))
	binary.BigEndian.PutUint64(buf[8:], height)
	return crypto.Keccak256Hash(buf[:])
}

func (l *Ledger) nonce(account common.Address) (uint64, error) {
	raw, err := l.store.Get(bucketNonces, account.Bytes())
	if err != nil {
		return 0, fmt.Errorf("reading nonce: %w", err)
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (l *Ledger) setNonce(account common.Address, nonce uint64) error {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], nonce)
	if err := l.store.Put(bucketNonces, account.Bytes(), enc[:]); err != nil {
		return fmt.Errorf("storing nonce: %w", err)
	}
	return nil
}

func loadHeight(store interfaces.StateStore) (uint64, error) {
	raw, err := store.Get(bucketMeta, heightKey)
	if err != nil {
		return 0, fmt.Errorf("reading height: %w", err)
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (l *Ledger) storeHeight() error {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], l.height)
	if err := l.store.Put(bucketMeta, heightKey, enc[:]); err != nil {
		return fmt.Errorf("storing height: %w", err)
	}
	return nil
}
