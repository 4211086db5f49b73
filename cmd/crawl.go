package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/app"
)

func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured seed URLs",
		Long: `Crawls each seed URL and the links beneath it up to the configured depth,
storing one merged intelligence record per registrable domain. The run ends
when every seed subtree is exhausted or the run budget elapses.`,
		RunE: runCrawlCommand,
	}

	cmd.Flags().StringSlice("seed", nil, "seed URL to crawl (repeatable)")
	cmd.Flags().Int("max-depth", 0, "maximum link depth below each seed")
	cmd.Flags().Int("concurrency", 0, "number of crawl workers")
	bindFlag(v, cmd, "crawler.seed_urls", "seed")
	bindFlag(v, cmd, "crawler.max_depth", "max-depth")
	bindFlag(v, cmd, "crawler.concurrency", "concurrency")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	if err := rt.cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer a.Close()

	rt.logger.Info("crawl starting",
		zap.Strings("seeds", rt.cfg.Crawler.SeedURLs),
		zap.Int("max_depth", rt.cfg.Crawler.MaxDepth),
		zap.Int("concurrency", rt.cfg.Crawler.Concurrency),
	)
	report, err := a.Crawl(cmd.Context())
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, r app.Report) {
	fmt.Fprintf(w, "Seeds:                     %d\n", r.Seeds)
	fmt.Fprintf(w, "URLs visited:              %d\n", r.URLsVisited)
	fmt.Fprintf(w, "URLs failed:               %d\n", r.URLsFailed)
	fmt.Fprintf(w, "Records stored:            %d\n", r.RecordsStored)
	fmt.Fprintf(w, "Store errors:              %d\n", r.StoreErrors)
	fmt.Fprintf(w, "Errors:                    %d\n", r.Errors)
	fmt.Fprintf(w, "Duration:                  %s\n", r.Duration.Round(time.Millisecond))
	if r.Canceled {
		fmt.Fprintln(w, "Run stopped early (budget elapsed or interrupted)")
	}
	fmt.Fprintf(w, "Total documents collected: %d\n", r.Total)
}
