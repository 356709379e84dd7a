package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/clipmd/internal/archive"
	"github.com/mfenderov/clipmd/internal/pipeline"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <bundle-dir>...",
	Short: "Index archived bundles into Elasticsearch",
	Long: `Read index.md from existing article bundles and index them for search.

Examples:
  clipmd index articles/my-article
  clipmd index articles/*`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	es, err := newSearchClient(GetConfig())
	if err != nil {
		return err
	}

	archiver := pipeline.New(nil, archive.NewWriter(""), pipeline.WithIndexer(es))

	var failed int
	for _, dir := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		article, err := archiver.IndexBundle(ctx, dir)
		if err != nil {
			slog.Warn("failed to index bundle", "dir", dir, "error", err)
			failed++
			continue
		}
		fmt.Printf("Indexed %s (%s)\n", article.Title, article.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bundles failed to index", failed, len(args))
	}
	return nil
}
