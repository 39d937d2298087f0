package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/altcos-graph/internal/buildinfo"
	"github.com/thiagokokada/altcos-graph/internal/config"
	"github.com/thiagokokada/altcos-graph/internal/store/backend"
	"github.com/thiagokokada/altcos-graph/internal/stream"
)

func (a *app) newRefCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ref REF",
		Short: "Print shell exports describing a stream ref",
		Long: `Print the directories and attributes of REF (e.g. altcos/x86_64/P10/k8s) as
shell variable exports, for build scripts to eval.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stream.ParseRef(a.v.GetString(config.KeyStreamsRoot), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s.ExportScript())
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "altcos-graph %s\n", buildinfo.String()); err != nil {
				return err
			}
			ostree, err := backend.OSTreeVersion()
			if err != nil {
				ostree = "not available"
			}
			_, err = fmt.Fprintf(out, "ostree %s (minimum %s)\n", ostree, backend.MinOSTreeVersion())
			return err
		},
	}
}
