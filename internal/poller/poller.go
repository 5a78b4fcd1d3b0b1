package poller

import (
	"context"
	"sync"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/0xPuncker/evm-indexer/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Monitor is the part of chain.Monitor the poller drives.
type Monitor interface {
	ProbeAll(ctx context.Context) []*types.ChainStatus
	CheckAllContracts(ctx context.Context) []*types.ContractStatus
}

// Alerter is told about chains whose health changed between two cycles.
type Alerter interface {
	SendChainAlert(status *types.ChainStatus) error
}

type Poller struct {
	monitor  Monitor
	alerter  Alerter
	logger   *logrus.Logger
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	healthy map[string]bool
}

// New creates a poller. alerter may be nil.
func New(monitor Monitor, alerter Alerter, logger *logrus.Logger, interval time.Duration) *Poller {
	return &Poller{
		monitor:  monitor,
		alerter:  alerter,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		healthy:  make(map[string]bool),
	}
}

// Start runs one cycle immediately and then one per interval until ctx is
// done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.update(ctx)

	for {
		select {
		case <-ticker.C:
			p.update(ctx)
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Poller) update(ctx context.Context) {
	p.logger.Debug("Starting poller update cycle")

	for _, status := range p.monitor.ProbeAll(ctx) {
		p.observe(status)
	}

	for _, status := range p.monitor.CheckAllContracts(ctx) {
		fields := logrus.Fields{
			"contract": status.Name,
			"chain":    status.Chain,
		}
		switch {
		case status.Error != "":
			p.logger.WithFields(fields).Warnf("Contract check failed: %s", status.Error)
		case !status.HasCode:
			p.logger.WithFields(fields).Warnf("No code at %s", status.Address)
		default:
			p.logger.WithFields(fields).Debug(utils.FormatBlockLag(status.HeadBlock, status.StartBlock))
		}
	}

	p.logger.Debug("Completed poller update cycle")
}

// observe alerts when a chain flips between healthy and unhealthy. The
// first sighting of an unhealthy chain also alerts.
func (p *Poller) observe(status *types.ChainStatus) {
	p.mu.Lock()
	previous, seen := p.healthy[status.Name]
	p.healthy[status.Name] = status.Healthy
	p.mu.Unlock()

	changed := (seen && previous != status.Healthy) || (!seen && !status.Healthy)
	if !changed {
		return
	}

	if status.Healthy {
		p.logger.Infof("Chain %s recovered at block %d", status.Name, status.HeadBlock)
	} else {
		p.logger.Warnf("Chain %s became unhealthy: %s", status.Name, status.Error)
	}

	if p.alerter == nil {
		return
	}
	if err := p.alerter.SendChainAlert(status); err != nil {
		p.logger.Errorf("Failed to send alert for chain %s: %v", status.Name, err)
	}
}

// Healthy reports the health seen in the last cycle.
func (p *Poller) Healthy(name string) (healthy, seen bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	healthy, seen = p.healthy[name]
	return healthy, seen
}
