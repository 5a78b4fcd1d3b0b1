package cmd

import (
	"fmt"

	"github.com/0xPuncker/evm-indexer/internal/config"
	indexer "github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

type options struct {
	cfgFile   string
	debugMode bool
	logger    *logrus.Logger
}

// NewRootCmd builds the indexerctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{logger: logrus.New()}

	rootCmd := &cobra.Command{
		Use:   "indexerctl",
		Short: "Inspect and check EVM indexer configuration",
		Long: `indexerctl loads the chains and contracts the indexer is configured with.

It can validate the configuration, print it with RPC credentials masked,
probe every RPC endpoint and contract, and describe the registered ABIs.

Without --config the file is looked up as config/indexer.yaml or
indexer.yaml in the working directory and its parents. When no file is
found the built-in mainnet/ExampleContract configuration is used, with
the endpoint read from RPC_URL.`,
		Version:       fmt.Sprintf("%s (Build: %s, Commit: %s)", Version, BuildTime, CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			opts.logger.SetOutput(cmd.ErrOrStderr())
			if opts.debugMode {
				opts.logger.SetLevel(logrus.DebugLevel)
			} else {
				opts.logger.SetLevel(logrus.WarnLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"indexer config file (default is ./config/indexer.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debugMode, "debug", false,
		"enable debug logging")

	rootCmd.SetVersionTemplate(`Version: {{.Version}}
`)

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newShowCmd(opts),
		newProbeCmd(opts),
		newABICmd(opts),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) load() (*indexer.Config, error) {
	path := o.cfgFile
	if path == "" {
		found, err := config.FindIndexerConfig()
		if err == nil {
			path = found
		}
	}
	o.logger.Debugf("Loading indexer config from %q", path)

	cfg, err := indexer.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
