package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/sirupsen/logrus"
)

// StartupNotifier checks every chain and contract once after boot and
// posts a summary.
type StartupNotifier struct {
	monitor      types.ChainMonitor
	notifier     *NotificationService
	logger       *logrus.Logger
	initialDelay time.Duration
}

func NewStartupNotifier(monitor types.ChainMonitor, notifier *NotificationService, logger *logrus.Logger) *StartupNotifier {
	return &StartupNotifier{
		monitor:      monitor,
		notifier:     notifier,
		logger:       logger,
		initialDelay: 5 * time.Second,
	}
}

func (n *StartupNotifier) NotifyStartup(ctx context.Context) error {
	select {
	case <-time.After(n.initialDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	var (
		chains    []*types.ChainStatus
		contracts []*types.ContractStatus
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, 5)
	)

	for _, chainName := range n.monitor.ChainNames() {
		wg.Add(1)
		go func(chain string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			status, cached := n.monitor.Status(chain)
			if cached {
				n.logger.Debugf("Skipping initial probe for %s - already cached", chain)
			} else {
				var err error
				status, err = n.monitor.ProbeChain(ctx, chain)
				if err != nil {
					n.logger.Errorf("Failed to probe %s: %v", chain, err)
					return
				}
			}

			mu.Lock()
			chains = append(chains, status)
			mu.Unlock()
		}(chainName)
	}
	wg.Wait()

	for _, contractName := range n.monitor.ContractNames() {
		wg.Add(1)
		go func(contract string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			status, err := n.monitor.CheckContract(ctx, contract)
			if err != nil {
				n.logger.Errorf("Failed to check contract %s: %v", contract, err)
				return
			}
			n.logger.Infof("Contract %s on %s: code=%t startBlockReached=%t",
				contract, status.Chain, status.HasCode, status.StartBlockReached)

			mu.Lock()
			contracts = append(contracts, status)
			mu.Unlock()
		}(contractName)
	}
	wg.Wait()

	sort.Slice(chains, func(i, j int) bool { return chains[i].Name < chains[j].Name })
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].Name < contracts[j].Name })

	if err := n.notifier.SendStartupSummary(chains, contracts); err != nil {
		return fmt.Errorf("failed to send startup summary: %w", err)
	}
	return nil
}
