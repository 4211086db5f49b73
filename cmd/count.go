package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/scam-intel-crawler/internal/app"
	"github.com/JakeFAU/scam-intel-crawler/internal/clock/system"
	"github.com/JakeFAU/scam-intel-crawler/internal/risk"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of domain records in the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.cfg.ValidateStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			store, err := app.OpenStore(ctx, rt.cfg.Store, risk.New(), system.New())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("record store unreachable: %w", err)
			}
			n, err := store.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total documents collected: %d\n", n)
			return nil
		},
	}
}
