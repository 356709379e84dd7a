package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfenderov/clipmd/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CLIPMD"

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "clipmd",
	Short: "clipmd: archive X articles as markdown",
	Long: `clipmd fetches X (Twitter) articles, converts them to clean Markdown
with YAML frontmatter and saves their images and videos next to the text.

Commands:
  fetch   Archive an article into a local bundle
  login   Log in to X and store session cookies
  logout  Remove stored session cookies
  index   Index existing bundles into Elasticsearch
  search  Search indexed articles
  serve   Start the MCP server for archive search`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".clipmd"))
		}
		v.AddConfigPath(".")
	}

	// CLIPMD_OUTPUT_DIR -> output.dir
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		v.BindEnv(key, envName(key))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Addresses arrive from env as a comma-separated string
	if addrs := os.Getenv(envName("elasticsearch.addresses")); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}

// envKeys are the nested keys viper only sees from env when bound explicitly.
var envKeys = []string{
	"output.dir",
	"output.format",
	"browser.exec_path",
	"browser.headless",
	"browser.user_agent",
	"browser.navigation_timeout",
	"browser.article_timeout",
	"browser.login_timeout",
	"browser.profile_dir",
	"scraper.timeout",
	"scraper.user_agent",
	"media.timeout",
	"media.max_retries",
	"media.backoff",
	"media.requests_per_second",
	"media.user_agent",
	"auth.dir",
	"storage.endpoint",
	"storage.bucket",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.use_ssl",
	"elasticsearch.addresses",
	"elasticsearch.index",
	"elasticsearch.username",
	"elasticsearch.password",
	"mcp.name",
	"mcp.version",
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
