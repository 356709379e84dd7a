package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/clipmd/internal/archive"
	"github.com/mfenderov/clipmd/internal/auth"
	"github.com/mfenderov/clipmd/internal/browser"
	"github.com/mfenderov/clipmd/internal/config"
	"github.com/mfenderov/clipmd/internal/media"
	"github.com/mfenderov/clipmd/internal/page"
	"github.com/mfenderov/clipmd/internal/pipeline"
	"github.com/mfenderov/clipmd/internal/scraper"
	"github.com/spf13/cobra"
)

var (
	fetchOutput string
	fetchFormat string
	noMedia     bool
	forceLogin  bool
	staticFetch bool
	uploadFlag  bool
	indexFlag   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Archive an X article",
	Long: `Fetch an X article, convert it to Markdown and download its media.

Each article is saved to its own directory named after the title:
  <output>/<slug>/index.md
  <output>/<slug>/media/1.jpg

Examples:
  # Archive an article (logs in first if no session is stored)
  clipmd fetch https://x.com/user/article/123

  # Save JSON instead of Markdown, skip media
  clipmd fetch https://x.com/user/article/123 --format json --no-media

  # Fetch without a browser
  clipmd fetch https://x.com/user/status/123 --static

  # Also upload the bundle and make it searchable
  clipmd fetch https://x.com/user/article/123 --upload --index`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Output directory (default from config, ./articles)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "Output format: md or json (default md)")
	fetchCmd.Flags().BoolVar(&noMedia, "no-media", false, "Skip downloading images and videos")
	fetchCmd.Flags().BoolVar(&forceLogin, "login", false, "Force re-authentication before fetching")
	fetchCmd.Flags().BoolVar(&staticFetch, "static", false, "Fetch the page without a browser")
	fetchCmd.Flags().BoolVar(&uploadFlag, "upload", false, "Upload the bundle to object storage")
	fetchCmd.Flags().BoolVar(&indexFlag, "index", false, "Index the article into Elasticsearch")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := args[0]
	if !page.IsArticleURL(url) {
		return fmt.Errorf("not a valid X article URL: %s (expected %s)", url, page.ExpectedURLFormat)
	}

	cfg := GetConfig()
	output := firstNonEmpty(fetchOutput, cfg.Output.Dir)
	format, err := pipeline.ParseFormat(firstNonEmpty(fetchFormat, cfg.Output.Format))
	if err != nil {
		return err
	}
	slog.Debug("fetch command starting", "url", url, "output", output, "format", format, "static", staticFetch)

	// Static fetches of public pages work without a session
	cookies, err := sessionCookies(ctx, cfg, forceLogin, !staticFetch)
	if err != nil {
		return err
	}

	var source pipeline.PageSource
	if staticFetch {
		source = scraper.New(scraper.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.Timeout,
		})
	} else {
		b, err := browser.New(ctx, cfg.Browser)
		if err != nil {
			return err
		}
		defer b.Close()
		source = b
	}

	var opts []pipeline.Option
	if !noMedia {
		opts = append(opts, pipeline.WithMedia(media.NewDownloader(cfg.Media)))
	}
	if uploadFlag {
		store, err := newStorageClient(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithUploader(store))
	}
	if indexFlag {
		es, err := newSearchClient(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithIndexer(es))
	}

	fmt.Printf("Fetching article: %s\n", url)

	archiver := pipeline.New(source, archive.NewWriter(output), opts...)
	result, err := archiver.Run(ctx, url, pipeline.Options{
		Cookies: cookies,
		NoMedia: noMedia,
		Format:  format,
		Upload:  uploadFlag,
		Index:   indexFlag,
	})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

// sessionCookies returns stored cookies. When none exist it logs in
// interactively if required is set; force always logs in.
func sessionCookies(ctx context.Context, cfg config.Config, force, required bool) ([]auth.Cookie, error) {
	store := auth.NewStore(cfg.Auth.Dir)
	if !force {
		cookies, err := store.Load()
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			slog.Debug("using stored cookies", "count", len(cookies))
			return cookies, nil
		}
		if !required {
			slog.Debug("no stored session, fetching anonymously")
			return nil, nil
		}
		fmt.Println("No saved session found.")
	}
	return login(ctx, cfg, store)
}

func login(ctx context.Context, cfg config.Config, store *auth.Store) ([]auth.Cookie, error) {
	fmt.Println("Opening browser for X login. Complete the login in the browser window...")

	cookies, err := browser.Login(ctx, cfg.Browser)
	if err != nil {
		return nil, err
	}
	if err := store.Save(cookies); err != nil {
		return nil, err
	}

	fmt.Printf("Login successful. Session saved to %s\n", store.Path())
	return cookies, nil
}

func printResult(r *pipeline.Result) {
	meta := r.Article.Metadata
	fmt.Printf("Title:  %s\n", meta.Title)
	fmt.Printf("Author: %s\n", meta.Author)
	if r.MediaDownloaded+r.MediaFailed > 0 {
		fmt.Printf("Media:  %d downloaded, %d failed\n", r.MediaDownloaded, r.MediaFailed)
	}
	if r.Uploaded {
		fmt.Println("Uploaded bundle to storage")
	}
	if r.Indexed {
		fmt.Println("Indexed article")
	}
	fmt.Printf("Saved:  %s\n", r.File)
	fmt.Printf("Done in %s\n", r.Duration.Round(time.Millisecond))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
