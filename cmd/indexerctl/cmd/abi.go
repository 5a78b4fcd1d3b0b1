package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/0xPuncker/evm-indexer/pkg/abis"
	"github.com/spf13/cobra"
)

func newABICmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "abi [name]",
		Short: "List registered ABIs or describe one",
		Long: `Without arguments abi lists the registered ABI names. With a name, or
with --file pointing at an ABI JSON file, it prints the events with their
topic hashes and the callable methods.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var (
				def *abis.Definition
				err error
			)
			switch {
			case file != "":
				def, err = abis.LoadFile(file)
			case len(args) == 1:
				def, err = abis.Lookup(args[0])
			default:
				for _, name := range abis.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			if err != nil {
				return err
			}
			opts.logger.Debugf("Describing ABI %s", def.Name)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tTOPIC")
			for _, e := range def.Events() {
				fmt.Fprintf(w, "%s\t%s\n", e.Signature, e.Topic.Hex())
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "METHOD\tMUTABILITY")
			for _, m := range def.Methods() {
				fmt.Fprintf(w, "%s\t%s\n", m.Signature, m.StateMutability)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "describe an ABI JSON file instead of a registered name")
	return cmd
}
