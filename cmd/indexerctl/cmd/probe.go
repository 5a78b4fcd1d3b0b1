package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/pkg/utils"
	"github.com/spf13/cobra"
)

func newProbeCmd(opts *options) *cobra.Command {
	var (
		attempts uint
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe every chain endpoint and contract",
		Long: `Probe connects to each chain's RPC endpoint, compares the remote chain
id with the configured one and reads the head block. For every contract
it checks for deployed code and reports the distance to its start block.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			monitorOpts := chain.DefaultOptions()
			monitorOpts.Attempts = attempts
			monitorOpts.Timeout = timeout
			monitor := chain.NewMonitor(cfg, opts.logger, monitorOpts)
			defer monitor.Close()

			out := cmd.OutOrStdout()
			failures := 0

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHAIN\tID\tHEAD\tLATENCY\tSTATUS")
			for _, s := range monitor.ProbeAll(cmd.Context()) {
				state := "ok"
				if !s.Healthy {
					state = s.Error
					failures++
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.Name, s.ConfiguredID, s.HeadBlock,
					s.Latency.Round(time.Millisecond), state)
			}
			w.Flush()

			if len(cfg.ContractNames()) > 0 {
				fmt.Fprintln(out)
				w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CONTRACT\tCHAIN\tADDRESS\tCODE\tSTART")
				for _, s := range monitor.CheckAllContracts(cmd.Context()) {
					start := s.Error
					if start == "" {
						start = utils.FormatBlockLag(s.HeadBlock, s.StartBlock)
					}
					if !s.OK() {
						failures++
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.Name, s.Chain, s.Address, s.HasCode, start)
				}
				w.Flush()
			}

			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			return nil
		},
	}

	defaults := chain.DefaultOptions()
	cmd.Flags().UintVar(&attempts, "attempts", defaults.Attempts, "RPC attempts per call")
	cmd.Flags().DurationVar(&timeout, "timeout", defaults.Timeout, "timeout per RPC call")
	return cmd
}

