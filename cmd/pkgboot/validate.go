package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conn-castle/pkgboot/internal/config"
	"github.com/conn-castle/pkgboot/internal/messages"
)

func newValidateCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   messages.ValidateUse,
		Short: messages.ValidateShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(manifestPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.ValidateOKFmt, manifestPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, flagManifest, "m", defaultManifestPath, messages.RunFlagManifest)
	return cmd
}
