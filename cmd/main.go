package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.tilo.dev/pkg"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tilo [file]",
		Short: "tilo is an incremental compiler and interpreter for the tilo language",
		Long: `tilo reads top-level forms one at a time, compiles each to LLVM IR, and
immediately executes bare expressions. With no argument it reads from
standard input.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					fmt.Fprintf(errOut, "tilo: %v\n", err)
					return err
				}
				defer file.Close()
				in = file
			}

			tilo.NewSession(in, out, errOut).Run()
			return nil
		},
	}

	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return cmd
}
