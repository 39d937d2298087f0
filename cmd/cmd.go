package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thiagokokada/altcos-graph/internal/config"
)

const configName = "altcos-graph"

func Run() error {
	return run(os.Args[1:])
}

func run(args []string) error {
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "altcos-graph",
		Short:         "Serve ALTCOS update graphs to Zincati",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.readConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: "+configName+".yaml in . or /etc/"+configName+")")
	flags.String("streams-root", "", "directory holding the stream trees (env STREAMS_ROOT)")
	flags.String("backend", "ostree", "commit store backend: ostree or git")
	flags.String("graph-mode", "bare", "repository mode the graph is built from: bare or archive")
	flags.Bool("skip-edges", true, "allow upgrades that skip intermediate releases")
	flags.Int("min-skip", 2, "smallest age distance of a skip edge")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	a.bind(flags.Lookup("streams-root"), config.KeyStreamsRoot)
	a.bind(flags.Lookup("backend"), config.KeyBackend)
	a.bind(flags.Lookup("graph-mode"), config.KeyGraphMode)
	a.bind(flags.Lookup("skip-edges"), config.KeySkipEdges)
	a.bind(flags.Lookup("min-skip"), config.KeyMinSkip)
	a.bind(flags.Lookup("log-level"), config.KeyLogLevel)
	a.bind(flags.Lookup("log-format"), config.KeyLogFormat)

	root.AddCommand(
		a.newServeCommand(),
		a.newGraphCommand(),
		a.newRefCommand(),
		newVersionCommand(),
	)
	return root
}

// bind makes the flag override the config file and environment for key.
func (a *app) bind(f *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func (a *app) readConfig() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("/etc/" + configName)
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// load validates the configuration and installs the logger it describes.
func (a *app) load(logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	setupLogging(logOut, cfg)
	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", slog.String("path", used))
	}
	return cfg, nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
