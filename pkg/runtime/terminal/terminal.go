package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/promo-lab/pkg/runtime/app"
	"github.com/de-tools/promo-lab/pkg/runtime/terminal/commands"
	"github.com/de-tools/promo-lab/pkg/runtime/terminal/export"
	"github.com/de-tools/promo-lab/pkg/services/config"
	"github.com/spf13/cobra"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// CLI represents the command-line interface
type CLI struct {
	opts    Options
	rt      *commands.Runtime
	app     *app.App
	cfgPath string
	output  string
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	// Logs receives structured logs (default: stderr)
	Logs io.Writer
	// Open wires the pipeline (default: app.New)
	Open func(ctx context.Context, cfg config.Config) (*app.App, error)
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}
	if opts.Open == nil {
		opts.Open = app.New
	}

	cli := &CLI{
		opts: opts,
		rt:   &commands.Runtime{},
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "promo",
		Short:             "Promotional scenario builder and evaluator",
		SilenceUsage:      true,
		PersistentPreRunE: cli.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if cli.app == nil {
				return nil
			}
			return cli.app.Close()
		},
	}

	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVarP(&cli.output, "output", "o", OutputTable, "Output format: table or json")

	cmd.AddCommand(commands.NewSeedCmd(cli.rt))
	cmd.AddCommand(commands.NewBuildCmd(cli.rt))
	cmd.AddCommand(commands.NewEvaluateCmd(cli.rt))
	cmd.AddCommand(commands.NewValidateCmd(cli.rt))
	cmd.AddCommand(commands.NewOptimizeCmd(cli.rt))
	cmd.AddCommand(commands.NewLearnCmd(cli.rt))

	return cmd
}

func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	switch cli.output {
	case OutputTable:
		cli.rt.Reporter = export.NewReporter(cli.opts.Output)
	case OutputJSON:
		cli.rt.Reporter = NewJSONReporter(cli.opts.Output)
	default:
		return fmt.Errorf("unknown output format %q", cli.output)
	}

	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log, cli.opts.Logs)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	a, err := cli.opts.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	cli.app = a
	cli.rt.Scenarios = a.Scenarios
	cli.rt.Seeder = a.Loader
	cli.rt.Learner = a.Learner
	return nil
}
