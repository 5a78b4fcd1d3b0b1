package cron

import (
	"testing"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/internal/testutil"
	"github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMonitor(t *testing.T, cfg *config.Config) *chain.Monitor {
	t.Helper()
	m := chain.NewMonitor(cfg, testutil.Logger(), chain.Options{
		Attempts:   1,
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(m.Close)
	return m
}

func TestProbeChainsJob(t *testing.T) {
	node := testutil.NewRPCNode(t, 1, 1000)
	job := NewProbeChainsJob(testMonitor(t, testutil.Config(node.URL(), 0)), testutil.Logger())

	require.NoError(t, job.Run())
	assert.Equal(t, 1, node.Calls("eth_blockNumber"))
}

func TestProbeChainsJobUnhealthy(t *testing.T) {
	mainnet := testutil.NewRPCNode(t, 1, 1000)
	base := testutil.NewRPCNode(t, 1, 1000)

	cfg := config.CreateConfig(map[string]types.Chain{
		"mainnet": {ID: 1, RPC: mainnet.URL()},
		"base":    {ID: 8453, RPC: base.URL()},
	}, nil)
	job := NewProbeChainsJob(testMonitor(t, cfg), testutil.Logger())

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 chains unhealthy")
	assert.Contains(t, err.Error(), "base: wrong chain id")
}
