// Package cmd defines the scam-intel-crawler CLI.
//
// The crawl command walks every seed URL depth-first with a fixed worker pool,
// extracts phones, emails, wallets and social profiles, enriches each
// registrable domain with WHOIS and DNS data, scores it, and merges the result
// into the configured record store. The count command reports how many domain
// records the store holds.
//
// Configuration comes from an optional YAML file (--config), SCAMCRAWL_*
// environment variables and command-line flags, in increasing priority.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/app"
	"github.com/JakeFAU/scam-intel-crawler/internal/config"
	"github.com/JakeFAU/scam-intel-crawler/internal/logging"
)

type runtimeKeyType struct{}

var runtimeKey runtimeKeyType

// runtime is what PersistentPreRunE hands to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. Tests replace it to inject failures.
var newApp = app.New

func newRootCmd() *cobra.Command {
	var cfgFile string
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "scam-intel-crawler",
		Short:         "Crawl suspected scam sites and collect contact and payment identifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRuntime(cmd.Context()); err == nil {
				_ = logging.Sync(rt.logger)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.AddCommand(newCrawlCmd(v), newCountCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	if ctx == nil {
		return nil, errors.New("command context not set")
	}
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// bindFlag wires a command flag onto a viper key.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM cancel the run.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
