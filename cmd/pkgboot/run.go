package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conn-castle/pkgboot/internal/config"
	"github.com/conn-castle/pkgboot/internal/messages"
	"github.com/conn-castle/pkgboot/internal/pipeline"
)

const (
	flagManifest      = "manifest"
	flagWorkRoot      = "work-root"
	flagSettle        = "settle"
	flagSkipConfigure = "skip-configure"

	defaultManifestPath = "pkgboot.toml"
)

func newRunCmd() *cobra.Command {
	var manifestPath string
	var workRoot string
	var settle time.Duration
	var skipConfigure bool

	cmd := &cobra.Command{
		Use:   messages.RunUse,
		Short: messages.RunShort,
		Long:  messages.RunLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.Load(manifestPath)
			if err != nil {
				return err
			}
			if workRoot != "" {
				manifest.Workspace.Root = workRoot
			}
			if cmd.Flags().Changed(flagSettle) {
				manifest.Timing.Settle = config.Duration(settle)
			}

			out := cmd.OutOrStdout()
			progress := io.Discard
			if isTerminal() {
				progress = out
			}
			p, err := pipeline.New(manifest, pipeline.Options{
				Out:           progress,
				SkipConfigure: skipConfigure,
			})
			if err != nil {
				return err
			}

			report := p.Run(cmd.Context())
			printReport(out, report)
			if fatal, ok := report.FatalResult(); ok {
				return fmt.Errorf(messages.RunFatalFmt, fatal.Stage, fatal.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, flagManifest, "m", defaultManifestPath, messages.RunFlagManifest)
	cmd.Flags().StringVar(&workRoot, flagWorkRoot, "", messages.RunFlagWorkRoot)
	cmd.Flags().DurationVar(&settle, flagSettle, 0, messages.RunFlagSettle)
	cmd.Flags().BoolVar(&skipConfigure, flagSkipConfigure, false, messages.RunFlagSkipConfigure)
	return cmd
}

// printReport renders one status line per stage plus a final summary.
func printReport(out io.Writer, report pipeline.Report) {
	for _, result := range report.Results {
		printStage(out, result)
	}
	if report.Fatal {
		return
	}
	if warnings := report.Warnings(); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, color.YellowString(messages.RunSummaryWarningsFmt, len(warnings)))
		return
	}
	_, _ = fmt.Fprintln(out, color.GreenString(messages.RunSummarySuccess))
}

// printStage renders a single stage result with a colored status label.
func printStage(out io.Writer, result pipeline.StageResult) {
	var label string
	switch {
	case result.Ok():
		label = color.GreenString(messages.RunStatusOKLabel)
	case result.Warning:
		label = color.YellowString(messages.RunStatusWarnLabel)
	default:
		label = color.RedString(messages.RunStatusFailLabel)
	}
	detail := ""
	if result.Err != nil {
		detail = fmt.Sprintf(messages.RunStageDetailFmt, result.Err)
	}
	_, _ = fmt.Fprintf(out, messages.RunStageLineFmt, label, result.Stage, detail)
}
