// Command jamutil inspects and maintains JAM message bases and reads
// PCBoard message bases.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/stlalpha/msgbase/internal/config"
	"github.com/stlalpha/msgbase/internal/jam"
	"github.com/stlalpha/msgbase/internal/logging"
)

// Build info set via ldflags.
var (
	Commit = "none"
	Date   = "unknown"
)

// app holds state shared by every command, filled in before a command runs.
type app struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "jamutil",
		Short: "JAM message base utility",
		Long: `jamutil creates, inspects and maintains JAM message bases: posting,
reading, recipient search, lastread tracking, reply linking, integrity
checks and scheduled maintenance. It also reads PCBoard message bases.

A base is named by its path without extension or by an area tag from
the config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "msgbase.yaml", "config file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newCreateCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newReadCmd(a))
	cmd.AddCommand(newPostCmd(a))
	cmd.AddCommand(newKillCmd(a))
	cmd.AddCommand(newPurgeCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newLastReadCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newLinkCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newScheduleCmd(a))
	cmd.AddCommand(newPCBCmd(a))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jamutil %s (commit: %s, built: %s)\n", jam.Version, Commit, Date)
		},
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, logging.Format(cfg.LogFormat), a.verbose)
	return nil
}

// jamOptions returns the options every base is opened with.
func (a *app) jamOptions() []jam.Option {
	opts := []jam.Option{
		jam.WithLogger(a.logger),
		jam.WithLockConfig(a.cfg.Lock.JAM()),
	}
	if a.cfg.Search.Workers > 0 {
		opts = append(opts, jam.WithSearchWorkers(a.cfg.Search.Workers))
	}
	return opts
}

// target is a base named on the command line or in the config.
type target struct {
	Tag  string
	Name string
	Path string
}

func (t target) label() string {
	if t.Name != "" {
		return fmt.Sprintf("%s (%s)", t.Tag, t.Name)
	}
	return t.Tag
}

// resolve maps an argument to a base: a configured area tag first, then a
// path.
func (a *app) resolve(arg string) target {
	if area, ok := a.cfg.Area(arg); ok {
		return target{Tag: area.Tag, Name: area.Name, Path: area.BasePath}
	}
	return target{Tag: filepath.Base(arg), Path: arg}
}

// resolveAll returns the bases named by args, or every configured area of
// the given type when all is set.
func (a *app) resolveAll(all bool, typ string, args []string) ([]target, error) {
	if all {
		var out []target
		for _, area := range a.cfg.AreasOfType(typ) {
			out = append(out, target{Tag: area.Tag, Name: area.Name, Path: area.BasePath})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no %s areas configured in %s", typ, a.cfgFile)
		}
		return out, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("base path required (or use --all)")
	}
	out := make([]target, 0, len(args))
	for _, arg := range args {
		out = append(out, a.resolve(arg))
	}
	return out, nil
}

func (a *app) open(arg string) (*jam.Base, error) {
	t := a.resolve(arg)
	b, err := jam.Open(t.Path, a.jamOptions()...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.Path, err)
	}
	return b, nil
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}
