package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/metrics"
	"github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/avast/retry-go/v4"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownChain    = errors.New("unknown chain")
	ErrUnknownContract = errors.New("unknown contract")

	// ErrWrongChainID is returned when the endpoint serves a different
	// chain than configured. Probes do not retry it.
	ErrWrongChainID = errors.New("wrong chain id")
)

const chainStatusCacheKey = "chain_status:%s"

type Options struct {
	Attempts    uint
	RetryDelay  time.Duration
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
	Dialer      Dialer
}

func DefaultOptions() Options {
	return Options{
		Attempts:    3,
		RetryDelay:  time.Second,
		Timeout:     10 * time.Second,
		CacheTTL:    5 * time.Minute,
		Concurrency: 5,
		Dialer:      DialEthclient,
	}
}

// Monitor checks the configured chains and contracts against their RPC
// endpoints. It holds one backend per chain, dialed on first use.
type Monitor struct {
	cfg    *config.Config
	logger *logrus.Logger
	opts   Options
	cache  *cache.Cache

	mu       sync.Mutex
	backends map[string]Backend
}

func NewMonitor(cfg *config.Config, logger *logrus.Logger, opts Options) *Monitor {
	defaults := DefaultOptions()
	if opts.Attempts == 0 {
		opts.Attempts = defaults.Attempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.Dialer == nil {
		opts.Dialer = defaults.Dialer
	}

	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		opts:     opts,
		cache:    cache.New(opts.CacheTTL, opts.CacheTTL*2),
		backends: make(map[string]Backend),
	}
}

func (m *Monitor) Config() *config.Config {
	return m.cfg
}

func (m *Monitor) ChainNames() []string {
	return m.cfg.ChainNames()
}

func (m *Monitor) ContractNames() []string {
	return m.cfg.ContractNames()
}

// backend dials outside the lock. When two callers race for one chain, the
// first stored backend wins.
func (m *Monitor) backend(ctx context.Context, chain types.Chain) (Backend, error) {
	m.mu.Lock()
	b, ok := m.backends[chain.Name]
	m.mu.Unlock()
	if ok {
		return b, nil
	}

	dialed, err := m.opts.Dialer(ctx, chain.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", config.RedactURL(chain.RPC), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.backends[chain.Name]; ok {
		dialed.Close()
		return b, nil
	}
	m.backends[chain.Name] = dialed
	return dialed, nil
}

// dropBackend forgets a backend after a failed call so the next attempt
// redials.
func (m *Monitor) dropBackend(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.backends[name]; ok {
		b.Close()
		delete(m.backends, name)
	}
}

func (m *Monitor) retry(ctx context.Context, what string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(m.opts.Attempts),
		retry.Delay(m.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.logger.WithFields(logrus.Fields{
				"target":  what,
				"attempt": n + 1,
				"error":   err,
			}).Debug("Retrying RPC call")
		}),
	)
}

// ProbeChain reads the chain id and head block from the chain's endpoint.
// Endpoint failures are reported in the returned status; the error is only
// set for chains that are not configured.
func (m *Monitor) ProbeChain(ctx context.Context, name string) (*types.ChainStatus, error) {
	chain, ok := m.cfg.Chain(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}

	start := time.Now()
	status := &types.ChainStatus{
		Name:         name,
		ConfiguredID: chain.ID,
		CheckedAt:    start,
	}

	err := m.retry(ctx, name, func() error {
		callCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()

		b, err := m.backend(callCtx, chain)
		if err != nil {
			return err
		}

		remoteID, err := b.ChainID(callCtx)
		if err != nil {
			m.dropBackend(name)
			return fmt.Errorf("failed to read chain id: %w", err)
		}
		if remoteID.IsUint64() {
			status.RemoteID = remoteID.Uint64()
		}
		if status.RemoteID != chain.ID {
			return retry.Unrecoverable(fmt.Errorf("%w: configured with %d and got %s",
				ErrWrongChainID, chain.ID, remoteID))
		}

		head, err := b.BlockNumber(callCtx)
		if err != nil {
			m.dropBackend(name)
			return fmt.Errorf("failed to read head block: %w", err)
		}
		status.HeadBlock = head

		return nil
	})

	status.Latency = time.Since(start)
	err = config.RedactError(chain.RPC, err)
	if err != nil {
		status.Healthy = false
		status.Error = err.Error()
		m.logger.WithFields(logrus.Fields{
			"chain": name,
			"error": err,
		}).Warn("Chain probe failed")
	} else {
		status.Healthy = true
		m.logger.WithFields(logrus.Fields{
			"chain":   name,
			"head":    status.HeadBlock,
			"latency": status.Latency.String(),
		}).Debug("Chain probe succeeded")
	}

	m.cache.Set(fmt.Sprintf(chainStatusCacheKey, name), status, cache.DefaultExpiration)
	metrics.ObserveChainProbe(status)

	return status, nil
}

// Status returns the last probe result for a chain if it has not expired.
func (m *Monitor) Status(name string) (*types.ChainStatus, bool) {
	cached, found := m.cache.Get(fmt.Sprintf(chainStatusCacheKey, name))
	if !found {
		return nil, false
	}
	return cached.(*types.ChainStatus), true
}

// ProbeAll probes every chain concurrently. Results are sorted by name.
func (m *Monitor) ProbeAll(ctx context.Context) []*types.ChainStatus {
	names := m.cfg.ChainNames()

	var (
		statuses  = make([]*types.ChainStatus, 0, len(names))
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, m.opts.Concurrency)
	)

	for _, name := range names {
		wg.Add(1)
		go func(chain string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			status, err := m.ProbeChain(ctx, chain)
			if err != nil {
				return
			}
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
		}(name)
	}

	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// CheckContract probes the contract's chain and looks for code at the
// contract address. A start block above the chain head is reported, not
// treated as an error.
func (m *Monitor) CheckContract(ctx context.Context, name string) (*types.ContractStatus, error) {
	contract, ok := m.cfg.Contract(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}

	status := &types.ContractStatus{
		Name:       name,
		Chain:      contract.Chain,
		Address:    contract.Address,
		StartBlock: contract.StartBlock,
		CheckedAt:  time.Now(),
	}

	chainStatus, err := m.ProbeChain(ctx, contract.Chain)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	if !chainStatus.Healthy {
		status.Error = fmt.Sprintf("chain %s unhealthy: %s", contract.Chain, chainStatus.Error)
		return status, nil
	}

	status.HeadBlock = chainStatus.HeadBlock
	status.StartBlockReached = chainStatus.HeadBlock >= contract.StartBlock
	if !status.StartBlockReached {
		status.BlocksToStart = contract.StartBlock - chainStatus.HeadBlock
	}
	metrics.SetContractBlocksToStart(name, status.BlocksToStart)

	chain, _ := m.cfg.Chain(contract.Chain)
	address := contract.HexAddress()
	err = m.retry(ctx, name, func() error {
		callCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()

		b, err := m.backend(callCtx, chain)
		if err != nil {
			return err
		}

		code, err := b.CodeAt(callCtx, address, new(big.Int).SetUint64(chainStatus.HeadBlock))
		if err != nil {
			m.dropBackend(chain.Name)
			return fmt.Errorf("failed to read code: %w", err)
		}
		status.HasCode = len(code) > 0
		return nil
	})
	if err != nil {
		status.Error = config.RedactError(chain.RPC, err).Error()
	}

	m.logger.WithFields(logrus.Fields{
		"contract":   name,
		"chain":      contract.Chain,
		"has_code":   status.HasCode,
		"head":       status.HeadBlock,
		"startBlock": contract.StartBlock,
	}).Debug("Contract checked")

	return status, nil
}

// CheckAllContracts checks every contract concurrently, sorted by name.
func (m *Monitor) CheckAllContracts(ctx context.Context) []*types.ContractStatus {
	names := m.cfg.ContractNames()

	var (
		statuses  = make([]*types.ContractStatus, 0, len(names))
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, m.opts.Concurrency)
	)

	for _, name := range names {
		wg.Add(1)
		go func(contract string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			status, err := m.CheckContract(ctx, contract)
			if err != nil {
				return
			}
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
		}(name)
	}

	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, b := range m.backends {
		b.Close()
		delete(m.backends, name)
	}
}
