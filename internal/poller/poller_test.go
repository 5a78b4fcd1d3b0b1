package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/internal/testutil"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []types.ChainStatus
}

func (a *recordingAlerter) SendChainAlert(status *types.ChainStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, *status)
	return nil
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type scriptedMonitor struct {
	mu     sync.Mutex
	rounds [][]*types.ChainStatus
	calls  int
}

func (m *scriptedMonitor) ProbeAll(ctx context.Context) []*types.ChainStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	round := m.rounds[m.calls%len(m.rounds)]
	m.calls++
	return round
}

func (m *scriptedMonitor) CheckAllContracts(ctx context.Context) []*types.ContractStatus {
	return nil
}

func TestPollerConfiguration(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
	}{
		{"Default interval", 30 * time.Second},
		{"Short interval", time.Second},
		{"Long interval", time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(&scriptedMonitor{}, nil, testutil.Logger(), tc.interval)

			assert.NotNil(t, p)
			assert.Equal(t, tc.interval, p.interval)
			assert.Nil(t, p.alerter)
		})
	}
}

func TestPollerUpdateCycle(t *testing.T) {
	node := testutil.NewRPCNode(t, 1, 1234600)
	node.SetCode(testutil.ExampleAddress, testutil.ExampleCode)

	monitor := chain.NewMonitor(testutil.Config(node.URL(), 1234567), testutil.Logger(), chain.Options{
		Attempts:   1,
		RetryDelay: time.Millisecond,
	})
	defer monitor.Close()

	p := New(monitor, nil, testutil.Logger(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	time.Sleep(180 * time.Millisecond)
	p.Stop()

	assert.GreaterOrEqual(t, node.Calls("eth_getCode"), 2)

	healthy, seen := p.Healthy("mainnet")
	require.True(t, seen)
	assert.True(t, healthy)

	status, ok := monitor.Status("mainnet")
	require.True(t, ok)
	assert.Equal(t, uint64(1234600), status.HeadBlock)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	p := New(&scriptedMonitor{rounds: [][]*types.ChainStatus{nil}}, nil, testutil.Logger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancel")
	}

	// Stop after the loop exited must not block or panic.
	p.Stop()
	p.Stop()
}

func TestPollerAlertsOnTransitions(t *testing.T) {
	up := &types.ChainStatus{Name: "mainnet", Healthy: true, HeadBlock: 10}
	down := &types.ChainStatus{Name: "mainnet", Healthy: false, Error: "node unavailable"}

	monitor := &scriptedMonitor{rounds: [][]*types.ChainStatus{{up}, {up}, {down}, {down}, {up}}}
	alerter := &recordingAlerter{}
	p := New(monitor, alerter, testutil.Logger(), time.Hour)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p.update(ctx)
	}

	require.Equal(t, 2, alerter.count())
	assert.False(t, alerter.alerts[0].Healthy)
	assert.Equal(t, "node unavailable", alerter.alerts[0].Error)
	assert.True(t, alerter.alerts[1].Healthy)
}

func TestPollerAlertsOnFirstUnhealthy(t *testing.T) {
	down := &types.ChainStatus{Name: "base", Healthy: false, Error: "dial refused"}

	alerter := &recordingAlerter{}
	p := New(&scriptedMonitor{rounds: [][]*types.ChainStatus{{down}}}, alerter, testutil.Logger(), time.Hour)

	p.update(context.Background())
	p.update(context.Background())

	assert.Equal(t, 1, alerter.count())
}
