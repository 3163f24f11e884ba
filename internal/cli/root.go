package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/whsock/internal/config"
	"github.com/lu-zhengda/whsock/internal/process"
	"github.com/lu-zhengda/whsock/internal/report"
	"github.com/lu-zhengda/whsock/internal/socket"
	"github.com/lu-zhengda/whsock/internal/users"
)

// Set via ldflags at build time.
var version = "dev"

// errUsage is returned after the usage text has been printed.
var errUsage = errors.New("exactly one of -t/--tcp or -u/--udp is required")

// options holds the global flags and the state prepared from them.
type options struct {
	jsonOutput bool
	configPath string
	logLevel   string
	strict     bool

	cfg *config.Config
	log *logrus.Logger
}

// Execute runs the root command. Cancelling ctx aborts a running scan.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var tcp, udp bool

	rootCmd := &cobra.Command{
		Use:   "whsock (-t | -u)",
		Short: "Socket inspector for Linux",
		Long: `whsock lists the TCP or UDP sockets of the local host together with
their owning user, process ID and command line.

Exactly one of -t/--tcp or -u/--udp must be given.`,
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := selectProtocol(tcp, udp, args)
			if err != nil {
				return usageError(cmd, err)
			}
			return opts.runReport(cmd, proto)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("whsock %s\n", version))
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetFlagErrorFunc(usageError)

	rootCmd.Flags().BoolVarP(&tcp, "tcp", "t", false, "Report TCP sockets")
	rootCmd.Flags().BoolVarP(&udp, "udp", "u", false, "Report UDP sockets")

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/whsock/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level for diagnostics on stderr (overrides config)")
	pf.BoolVar(&opts.strict, "strict", false, "Fail when any socket is left out of the report")

	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	return rootCmd
}

// usageError prints the usage text to stderr and returns err.
func usageError(cmd *cobra.Command, err error) error {
	fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	return err
}

// selectProtocol enforces the single-mode rule of the command line.
func selectProtocol(tcp, udp bool, args []string) (socket.Protocol, error) {
	if len(args) > 0 {
		return "", fmt.Errorf("unexpected argument %q", args[0])
	}
	switch {
	case tcp && !udp:
		return socket.TCP, nil
	case udp && !tcp:
		return socket.UDP, nil
	default:
		return "", errUsage
	}
}

// setup loads the config and builds the stderr logger.
func (o *options) setup(stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	o.cfg = cfg
	o.log = log
	return nil
}

func (o *options) reporter() *report.Reporter {
	return &report.Reporter{
		Tables: socket.NewReader(o.cfg.TablePaths()),
		Owners: process.NewScanner(o.cfg.ProcRoot,
			process.WithWorkers(o.cfg.Workers),
			process.WithLogger(o.log),
		),
		Correlator: &report.Correlator{
			Users:      users.NewResolver(o.cfg.PasswdPath),
			Unresolved: o.cfg.UnresolvedUser,
			Log:        o.log,
		},
		Log: o.log,
	}
}

func (o *options) runReport(cmd *cobra.Command, proto socket.Protocol) error {
	res, err := o.reporter().Run(cmd.Context(), proto)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.jsonOutput {
		err = report.WriteJSON(out, res.Rows)
	} else {
		err = report.WriteTSV(out, res.Rows, o.cfg.ColorEnabled)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if o.strict && len(res.RowErrors) > 0 {
		return fmt.Errorf("%d %s socket(s) left out of report", len(res.RowErrors), proto)
	}
	return nil
}
