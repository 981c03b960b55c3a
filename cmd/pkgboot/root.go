package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// isTerminal reports whether stdout is attached to a terminal. Progress
// lines are suppressed when output is piped so logs only carry results.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          messages.RootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newValidateCmd())
	return cmd
}
