package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/sirupsen/logrus"
)

const TaskProbeChains = "probe-chains"

// ChainProber probes every configured chain.
type ChainProber interface {
	ProbeAll(ctx context.Context) []*types.ChainStatus
}

type ProbeChainsJob struct {
	monitor ChainProber
	logger  *logrus.Logger
	timeout time.Duration
}

func NewProbeChainsJob(monitor ChainProber, logger *logrus.Logger) *ProbeChainsJob {
	return &ProbeChainsJob{
		monitor: monitor,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
}

// Run probes all chains and fails when any of them is unhealthy.
func (j *ProbeChainsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	statuses := j.monitor.ProbeAll(ctx)

	var failed []string
	for _, status := range statuses {
		if status.Healthy {
			j.logger.WithFields(logrus.Fields{
				"chain":   status.Name,
				"head":    status.HeadBlock,
				"latency": status.Latency.Round(time.Millisecond).String(),
			}).Info("Chain healthy")
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", status.Name, status.Error))
	}

	j.logger.Infof("Probed %d chains, %d healthy", len(statuses), len(statuses)-len(failed))

	if len(failed) > 0 {
		j.logger.Infof("=== Unhealthy chains (%d) ===", len(failed))
		for _, f := range failed {
			j.logger.Infof("  %s", f)
		}
		return fmt.Errorf("%d of %d chains unhealthy: %s", len(failed), len(statuses), strings.Join(failed, "; "))
	}
	return nil
}
