// Package config loads the console configuration. Later sources override
// earlier ones: built-in defaults, a .env file, environment variables and
// finally command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvFile is the dotenv file read by Load when present.
var EnvFile = ".env"

// Config is the console configuration.
type Config struct {
	Addr           string        `env:"ATLAS_ADMIN_ADDR"            envDefault:":8080"`
	BackendURL     string        `env:"ATLAS_BACKEND_URL"           envDefault:"http://127.0.0.1:8000"`
	BackendTimeout time.Duration `env:"ATLAS_BACKEND_TIMEOUT"       envDefault:"2m"`
	DBPath         string        `env:"ATLAS_ADMIN_DB"              envDefault:"atlas-admin.sqlite3"`
	LogPath        string        `env:"ATLAS_ADMIN_LOG"`
	HtpasswdPath   string        `env:"ATLAS_ADMIN_HTPASSWD"`
	TrustedHosts   []string      `env:"TRUSTED_HOSTS"               envSeparator:","`
	SecureCookies  bool          `env:"ATLAS_ADMIN_SECURE_COOKIES"  envDefault:"false"`
	SessionIdle    time.Duration `env:"ATLAS_ADMIN_SESSION_IDLE"    envDefault:"12h"`
	MaxUpload      int64         `env:"ATLAS_ADMIN_MAX_UPLOAD"      envDefault:"536870912"`
}

// Load builds the configuration for the serve command from the environment
// and args. It returns flag.ErrHelp when help was requested.
func Load(args []string, usage io.Writer) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.parseFlags(args, usage); err != nil {
		return nil, err
	}

	cfg.TrustedHosts = cleanHosts(cfg.TrustedHosts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) parseFlags(args []string, usage io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")

	fs.StringVar(&c.BackendURL, "backend", c.BackendURL, "")
	fs.StringVar(&c.BackendURL, "b", c.BackendURL, "")

	fs.DurationVar(&c.BackendTimeout, "timeout", c.BackendTimeout, "")

	fs.StringVar(&c.DBPath, "db", c.DBPath, "")
	fs.StringVar(&c.DBPath, "d", c.DBPath, "")

	fs.StringVar(&c.LogPath, "log", c.LogPath, "")
	fs.StringVar(&c.LogPath, "l", c.LogPath, "")

	fs.StringVar(&c.HtpasswdPath, "htpasswd", c.HtpasswdPath, "")

	hosts := strings.Join(c.TrustedHosts, ",")
	fs.StringVar(&hosts, "trusted-hosts", hosts, "")

	fs.BoolVar(&c.SecureCookies, "secure-cookies", c.SecureCookies, "")

	fs.Usage = func() {
		fmt.Fprint(usage, `Usage: atlas-admin serve [flags]

Flags:
  -a, -addr <host:port>       listen address (default: :8080)
  -b, -backend <url>          backend base URL (default: http://127.0.0.1:8000)
  -timeout <duration>         backend request timeout (default: 2m)
  -d, -db <path>              SQLite database path (default: atlas-admin.sqlite3)
  -l, -log <path>             log file path (default: no file, stdout/stderr only)
  -htpasswd <path>            bcrypt htpasswd file guarding the console
  -trusted-hosts <h1,h2>      allowed Host headers (default: any)
  -secure-cookies             mark console cookies Secure (behind HTTPS)
  -h, -help                   show this help and exit

Every flag can also be set through its environment variable or a .env file.
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	c.TrustedHosts = strings.Split(hosts, ",")
	return nil
}

// Validate checks values that cannot be expressed as parse errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend URL %q must be an absolute http(s) URL", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if c.MaxUpload <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

func cleanHosts(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}
