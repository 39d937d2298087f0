package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/altcos-graph/internal/server"
	"github.com/thiagokokada/altcos-graph/internal/version"
)

type colorMode string

const (
	colorAuto   colorMode = "auto"
	colorAlways colorMode = "always"
	colorNever  colorMode = "never"
)

func (a *app) newGraphCommand() *cobra.Command {
	var (
		basearch string
		branch   string
		color    string
	)
	cmd := &cobra.Command{
		Use:   "graph OS_VERSION",
		Short: "Print the update graph of the stream a version belongs to",
		Long: `Print the update graph served for OS_VERSION, e.g. p10_k8s.20230101.1.0.
The stream defaults to the branch encoded in the version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if branch == "" {
				if v, err := version.Parse(args[0]); err == nil {
					branch = string(v.Branch)
				}
			}
			q, err := server.ParseQuery(basearch, branch, args[0])
			if err != nil {
				return err
			}
			g, err := server.BuildGraph(cfg, q.Stream(cfg.StreamsRoot))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return writeJSON(out, server.NewGraphResponse(g), useColor(colorMode(color), out))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&basearch, "basearch", "x86_64", "architecture")
	flags.StringVar(&branch, "stream", "", "release branch (default: from OS_VERSION)")
	flags.StringVar(&color, "color", string(colorAuto), "colorize output: auto, always or never")
	return cmd
}

func useColor(mode colorMode, w io.Writer) bool {
	switch mode {
	case colorAlways:
		return true
	case colorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any, color bool) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data = append(data, '\n')
	if !color {
		_, err := w.Write(data)
		return err
	}
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, string(data))
	if err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	style := styles.Get("github-dark")
	if style == nil {
		style = styles.Fallback
	}
	return formatters.TTY256.Format(w, style, it)
}
