package config

import "time"

// Config holds all application configuration.
type Config struct {
	Output        Output        `mapstructure:"output"`
	Browser       Browser       `mapstructure:"browser"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Media         Media         `mapstructure:"media"`
	Auth          Auth          `mapstructure:"auth"`
	Storage       Storage       `mapstructure:"storage"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Output controls where and how archives are written.
type Output struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // md or json
}

// Browser holds headless Chrome configuration.
type Browser struct {
	ExecPath          string        `mapstructure:"exec_path"` // empty uses the chromedp lookup
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ArticleTimeout    time.Duration `mapstructure:"article_timeout"`
	LoginTimeout      time.Duration `mapstructure:"login_timeout"`
	ProfileDir        string        `mapstructure:"profile_dir"` // Chrome profile reused during login
}

// Scraper holds static (no JavaScript) fetch configuration.
type Scraper struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Media holds media download configuration.
type Media struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Backoff           time.Duration `mapstructure:"backoff"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	UserAgent         string        `mapstructure:"user_agent"` // empty picks a random browser agent
}

// Auth holds session cookie configuration.
type Auth struct {
	Dir string `mapstructure:"dir"` // empty uses ~/.clipmd
}

// Storage holds S3/MinIO storage configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Output: Output{
			Dir:    "./articles",
			Format: "md",
		},
		Browser: Browser{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 60 * time.Second,
			ArticleTimeout:    30 * time.Second,
			LoginTimeout:      5 * time.Minute,
		},
		Scraper: Scraper{
			Timeout:   30 * time.Second,
			UserAgent: "clipmd/1.0",
		},
		Media: Media{
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			Backoff:           time.Second,
			RequestsPerSecond: 4,
		},
		Storage: Storage{
			Endpoint:        "localhost:9002",
			Bucket:          "clipmd",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "clipmd-articles",
		},
		MCP: MCP{
			Name:    "clipmd",
			Version: "1.0.0",
		},
	}
}
