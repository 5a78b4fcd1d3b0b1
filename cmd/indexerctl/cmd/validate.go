package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate chains and contracts",
		Long: `Validate checks that every chain has a positive, unique id and an
http(s) or ws(s) RPC URL, and that every contract references a known
chain, carries an ABI and has a well formed address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration is invalid:")
				fmt.Fprintln(cmd.OutOrStdout(), err)
				return fmt.Errorf("validation failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %d chains, %d contracts\n",
				len(cfg.ChainNames()), len(cfg.ContractNames()))
			return nil
		},
	}
}
