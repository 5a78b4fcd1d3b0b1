package notifications

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// TestSlackNotificationManual probes the RPC_URL endpoint and posts the
// result to a real Slack webhook.
func TestSlackNotificationManual(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	rootDir := filepath.Dir(filepath.Dir(wd))
	t.Logf("Project root directory: %s", rootDir)

	err = godotenv.Load(filepath.Join(rootDir, ".env.test"))
	if err != nil {
		t.Log("No .env.test file found, using environment variables")
	}

	if os.Getenv("SLACK_WEBHOOK_URL") == "" {
		t.Skip("SLACK_WEBHOOK_URL not set")
	}
	if os.Getenv(config.RPCEnv) == "" {
		t.Skipf("%s not set", config.RPCEnv)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid configuration: %v", err)
	}

	monitor := chain.NewMonitor(cfg, logger, chain.DefaultOptions())
	defer monitor.Close()

	status, err := monitor.ProbeChain(context.Background(), config.DefaultChainName)
	if err != nil {
		t.Fatal(err)
	}

	slackService, err := NewSlackService(logger)
	if err != nil {
		t.Fatal(err)
	}

	if err := slackService.SendChainAlert(status); err != nil {
		t.Fatal(err)
	}

	contract, err := monitor.CheckContract(context.Background(), config.DefaultContractName)
	if err != nil {
		t.Fatal(err)
	}
	if err := slackService.SendContractAlert(contract); err != nil {
		t.Fatal(err)
	}

	t.Logf("Successfully sent notifications for %s:", status.Name)
	t.Logf("Healthy: %t", status.Healthy)
	t.Logf("Head block: %d", status.HeadBlock)
	t.Logf("Contract %s has code: %t", contract.Name, contract.HasCode)
}
