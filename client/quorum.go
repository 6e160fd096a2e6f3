package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/metrics"
	"github.com/ruteri/identity-registry-backend/registry"
)

// QuorumNotReached is returned when no response group reaches the
// configured threshold. Got is the size of the largest group, Need the
// threshold, Distinct the number of distinct answers seen.
type QuorumNotReached struct {
	Got      int
	Need     int
	Distinct int
}

func (e *QuorumNotReached) Error() string {
	return fmt.Sprintf("quorum not reached: largest group %d of %d needed across %d distinct answers",
		e.Got, e.Need, e.Distinct)
}

// callResult is one endpoint's answer: either output bytes or a
// deterministic ledger error. Transport failures never become results.
type callResult struct {
	output []byte
	err    error
}

// key groups results by exact byte equality; ledger errors group by their
// rendered form, which includes the code and its arguments.
func (r callResult) key() string {
	if r.err != nil {
		return "err:" + r.err.Error()
	}
	return "ok:" + string(r.output)
}

// call executes a read against the backend pool with quorum verification.
// The identical call fans out to every endpoint; a response must be
// byte-identical on at least threshold endpoints to be returned.
// Deterministic ledger errors (taxonomy reverts) participate in grouping
// like any other answer; transport failures only count against their
// endpoint.
func (c *Client) call(ctx context.Context, from, to interfaces.Account, data []byte) ([]byte, error) {
	if len(c.backends) == 1 {
		output, err := c.callWithRetry(ctx, c.backends[0], from, to, data)
		if err != nil && !isLedgerError(err) {
			metrics.QuorumReads.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.QuorumReads.WithLabelValues("ok").Inc()
		return output, err
	}

	results := make([]*callResult, len(c.backends))
	var wg sync.WaitGroup
	for i, backend := range c.backends {
		wg.Add(1)
		go func(i int, backend interfaces.LedgerBackend) {
			defer wg.Done()
			output, err := c.callWithRetry(ctx, backend, from, to, data)
			if err != nil && !isLedgerError(err) {
				c.log.Debug("Quorum read endpoint failed", "err", err)
				return
			}
			results[i] = &callResult{output: output, err: err}
		}(i, backend)
	}
	wg.Wait()

	groups := make(map[string]int)
	byKey := make(map[string]*callResult)
	largest := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		key := result.key()
		groups[key]++
		byKey[key] = result
		if groups[key] > largest {
			largest = groups[key]
		}
		if groups[key] >= c.threshold {
			metrics.QuorumReads.WithLabelValues("ok").Inc()
			return result.output, result.err
		}
	}

	if len(groups) == 0 {
		metrics.QuorumReads.WithLabelValues("error").Inc()
		return nil, errors.New("quorum read: all endpoints failed")
	}
	metrics.QuorumReads.WithLabelValues("not_reached").Inc()
	return nil, &QuorumNotReached{Got: largest, Need: c.threshold, Distinct: len(groups)}
}

// callWithRetry runs one endpoint's call with per-attempt timeout and
// bounded retries. Ledger errors are deterministic answers and are never
// retried.
func (c *Client) callWithRetry(ctx context.Context, backend interfaces.LedgerBackend, from, to interfaces.Account, data []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.callRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryInterval):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		output, err := backend.CallContract(callCtx, from, to, data)
		cancel()
		if err == nil || isLedgerError(err) {
			return output, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// isLedgerError reports whether err is a decoded taxonomy revert rather
// than a transport failure.
func isLedgerError(err error) bool {
	var ledgerErr *registry.Error
	return errors.As(err, &ledgerErr)
}

// read packs a method call, runs it through quorum verification and
// unpacks the outputs.
func (c *Client) read(ctx context.Context, contract, method string, args ...any) ([]any, error) {
	spec, err := c.spec(contract)
	if err != nil {
		return nil, err
	}
	data, err := spec.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s.%s: %w", contract, method, err)
	}

	start := time.Now()
	output, err := c.call(ctx, interfaces.Account{}, spec.Address, data)
	metrics.CallDuration.WithLabelValues(contract).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return spec.ABI.Methods[method].Outputs.Unpack(output)
}
