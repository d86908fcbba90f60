package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/config"
	"github.com/erazemk/atlas/internal/db"
	"github.com/erazemk/atlas/internal/panel"
	"github.com/erazemk/atlas/internal/proxy"
	"github.com/erazemk/atlas/internal/store"
	"github.com/erazemk/atlas/internal/web"
)

const (
	sweepInterval = 5 * time.Minute
	purgeInterval = time.Hour
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

const usage = `Usage: atlas-admin <command> [flags]

Commands:
  serve               run the admin console (default)
  htpasswd <user>     print a bcrypt htpasswd entry for user

Run "atlas-admin serve -h" for the serve flags.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "htpasswd":
		err = htpasswd(args, os.Stdin, os.Stdout, os.Stderr)
	case "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(args []string) error {
	cfg, err := config.Load(args, os.Stdout)
	if err != nil {
		return err
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// Signing keys are generated on first run and persist across restarts.
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading session secret: %w", err)
	}
	csrfKey, err := store.GetCSRFKey(ctx, database)
	if err != nil {
		return fmt.Errorf("loading CSRF key: %w", err)
	}

	client, err := atlas.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	if err != nil {
		return err
	}
	sessions := panel.NewSessions(client)

	webRouter, err := web.NewRouter(web.Options{
		DB:            database,
		JWTSecret:     jwtSecret,
		CSRFKey:       csrfKey,
		Client:        client,
		Sessions:      sessions,
		SecureCookies: cfg.SecureCookies,
		SessionTTL:    cfg.SessionIdle,
		MaxUpload:     cfg.MaxUpload,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	handler, err := buildHandler(cfg, client, webRouter)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and backend calls share the backend timeout.
		ReadTimeout:  cfg.BackendTimeout,
		WriteTimeout: cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr, "backend", cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		sessions.Run(gctx, sweepInterval, cfg.SessionIdle)
		return nil
	})

	g.Go(func() error {
		purgeRevoked(gctx, database)
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped, closing database")
	return err
}

// buildHandler combines the backend proxy and the console pages behind the
// shared middleware chain.
func buildHandler(cfg *config.Config, client *atlas.Client, webRouter http.Handler) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.Handle("/api/", proxy.New(client.BaseURL(), web.SessionCookie, web.CSRFCookie))
	mux.Handle("/", webRouter)

	var handler http.Handler = mux
	if cfg.HtpasswdPath != "" {
		users, err := proxy.LoadHtpasswd(cfg.HtpasswdPath)
		if err != nil {
			return nil, err
		}
		slog.Info("basic auth enabled", "users", len(users))
		handler = proxy.BasicAuth(users, "atlas-admin", "/healthz")(handler)
	}
	if len(cfg.TrustedHosts) > 0 {
		handler = proxy.TrustedHosts(cfg.TrustedHosts)(handler)
	}
	return proxy.Logging(proxy.Recovery(handler)), nil
}

// purgeRevoked periodically removes revocation records for expired sessions.
func purgeRevoked(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, database, time.Now())
			if err != nil {
				slog.Error("failed to purge revoked sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("revoked sessions purged", "count", n)
			}
		}
	}
}

// readPassword reads a password from the terminal without echo.
var readPassword = func(fd int) ([]byte, error) { return term.ReadPassword(fd) }

// htpasswd prints an htpasswd entry for the user named in args. The password
// is prompted for twice on a terminal, or read as the first line of stdin.
func htpasswd(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: atlas-admin htpasswd <user>")
	}
	user := strings.TrimSpace(args[0])

	var password string
	if fd := int(stdin.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(stderr, "Password: ")
		first, err := readPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		fmt.Fprint(stderr, "Repeat password: ")
		second, err := readPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		if string(first) != string(second) {
			return errors.New("passwords do not match")
		}
		password = string(first)
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return errors.New("password must not be empty")
	}

	entry, err := proxy.HashEntry(user, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, entry)
	return nil
}
