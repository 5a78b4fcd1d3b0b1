package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/sirupsen/logrus"
)

const TaskCheckContracts = "check-contracts"

type ContractMonitor interface {
	CheckAllContracts(ctx context.Context) []*types.ContractStatus
}

type ContractAlerter interface {
	SendContractAlert(status *types.ContractStatus) error
}

// ContractChecker verifies every contract and alerts once per distinct
// problem. A contract that recovers is alerted again on its next problem.
type ContractChecker struct {
	monitor ContractMonitor
	alerter ContractAlerter
	logger  *logrus.Logger
	timeout time.Duration

	mu         sync.Mutex
	lastAlerts map[string]string
}

func NewContractChecker(monitor ContractMonitor, alerter ContractAlerter, logger *logrus.Logger) *ContractChecker {
	return &ContractChecker{
		monitor:    monitor,
		alerter:    alerter,
		logger:     logger,
		timeout:    2 * time.Minute,
		lastAlerts: make(map[string]string),
	}
}

func problem(status *types.ContractStatus) string {
	switch {
	case status.Error != "":
		return status.Error
	case !status.HasCode:
		return fmt.Sprintf("no code at %s", status.Address)
	default:
		return ""
	}
}

func (c *ContractChecker) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var failed int
	for _, status := range c.monitor.CheckAllContracts(ctx) {
		fields := logrus.Fields{
			"contract":   status.Name,
			"chain":      status.Chain,
			"startBlock": status.StartBlock,
		}

		issue := problem(status)
		if issue == "" {
			if _, alerted := c.lastAlerts[status.Name]; alerted {
				c.logger.WithFields(fields).Info("Contract recovered")
				delete(c.lastAlerts, status.Name)
			}
			if !status.StartBlockReached {
				c.logger.WithFields(fields).Infof("%d blocks until start block", status.BlocksToStart)
			} else {
				c.logger.WithFields(fields).Debug("Contract ready")
			}
			continue
		}

		failed++
		c.logger.WithFields(fields).Warn(issue)

		if c.lastAlerts[status.Name] == issue {
			c.logger.WithFields(fields).Debug("Problem already alerted, skipping notification")
			continue
		}
		if c.alerter == nil {
			c.logger.WithFields(fields).Debug("Alerts not configured, skipping notification")
			continue
		}
		if err := c.alerter.SendContractAlert(status); err != nil {
			c.logger.WithFields(fields).WithError(err).Error("Failed to send contract alert")
			continue
		}
		c.lastAlerts[status.Name] = issue
	}

	if failed > 0 {
		return fmt.Errorf("%d contracts need attention", failed)
	}
	return nil
}
