package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"api.tunesmith.dev/internal/agent"
	"api.tunesmith.dev/internal/data"
	"api.tunesmith.dev/internal/mailer"
	"api.tunesmith.dev/internal/spotify"
	"api.tunesmith.dev/internal/vault"
	"api.tunesmith.dev/internal/vcs"
	"api.tunesmith.dev/internal/youtube"
)

var (
	version = vcs.Version()
)

type config struct {
	port        int
	env         string
	frontendURL string
	secretKey   string
	db          struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	yt struct {
		apiKey     string
		maxResults int
	}
	sp struct {
		clientID     string
		clientSecret string
		redirectURI  string
		maxResults   int
	}
	llm struct {
		provider      string
		apiKey        string
		model         string
		maxIterations int
		maxTokens     int
		memoryWindow  int
	}
	session struct {
		lifetime time.Duration
	}
	agents struct {
		idleTimeout   time.Duration
		evictSchedule string
	}
	cors struct {
		trustedOrigins []string
	}
	log struct {
		level  string
		format string
	}
}

type application struct {
	config   config
	logger   *slog.Logger
	models   data.Models
	mailer   *mailer.Mailer
	youtube  *youtube.Client
	spotify  *spotify.Client
	auth     *spotify.Authenticator
	provider agent.Provider
	agents   *agent.Registry
	sessions *scs.SessionManager
	vault    *vault.Vault
	// refreshed holds tokens renewed by agents' background clients, keyed by
	// agent id, until the owner's next request writes them to the session.
	refreshed sync.Map
	wg        sync.WaitGroup
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	var cfg config

	flag.IntVar(&cfg.port, "port", 4000, "API server port")
	flag.StringVar(&cfg.env, "env", "development", "Environment (development|staging|production)")
	flag.StringVar(&cfg.frontendURL, "frontend-url", "/", "Where to redirect after a successful login")
	flag.StringVar(&cfg.secretKey, "secret-key", os.Getenv("TUNESMITH_SECRET_KEY"), "Secret used to encrypt tokens stored in sessions")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("TUNESMITH_DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 20, "PostgreSQL max idle connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max connection idle time")

	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "", "SMTP host (notifications are off when empty)")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 25, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "TuneSmith <no-reply@tunesmith.dev>", "SMTP sender")

	flag.StringVar(&cfg.yt.apiKey, "yt-api-key", os.Getenv("YOUTUBE_API_KEY"), "Api key for Youtube Data (youtube search is off when empty)")
	flag.IntVar(&cfg.yt.maxResults, "yt-max-results", 5, "Max results returned by Youtube api at once")

	flag.StringVar(&cfg.sp.clientID, "sp-client-id", os.Getenv("SPOTIFY_CLIENT_ID"), "Client ID for Spotify")
	flag.StringVar(&cfg.sp.clientSecret, "sp-client-secret", os.Getenv("SPOTIFY_CLIENT_SECRET"), "Client Secret for Spotify")
	flag.StringVar(&cfg.sp.redirectURI, "sp-redirect-uri", envOr("SPOTIFY_REDIRECT_URI", "http://127.0.0.1:4000/v1/auth/callback"), "OAuth redirect URI registered with Spotify")
	flag.IntVar(&cfg.sp.maxResults, "sp-max-results", 5, "Max results returned by Spotify catalog search at once")

	flag.StringVar(&cfg.llm.provider, "llm-provider", "openai", "LLM provider (openai|anthropic)")
	flag.StringVar(&cfg.llm.apiKey, "llm-api-key", "", "LLM api key (defaults to OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	flag.StringVar(&cfg.llm.model, "llm-model", "gpt-3.5-turbo-0125", "LLM model")
	flag.IntVar(&cfg.llm.maxIterations, "llm-max-iterations", agent.DefaultMaxIterations, "Max tool-calling rounds per request")
	flag.IntVar(&cfg.llm.maxTokens, "llm-max-tokens", 1024, "Max tokens per completion")
	flag.IntVar(&cfg.llm.memoryWindow, "llm-memory-window", agent.DefaultMemoryWindow, "Messages of conversation history kept per agent")

	flag.DurationVar(&cfg.session.lifetime, "session-lifetime", 24*time.Hour, "Session lifetime")

	flag.DurationVar(&cfg.agents.idleTimeout, "agent-idle-timeout", time.Hour, "Evict agents idle for longer than this")
	flag.StringVar(&cfg.agents.evictSchedule, "agent-evict-schedule", "@every 10m", "Cron schedule of the idle agent eviction job")

	flag.Func("cors-trusted-origins", "Trusted CORS origins (space separate)", func(val string) error {
		cfg.cors.trustedOrigins = strings.Fields(val)
		return nil
	})

	flag.StringVar(&cfg.log.level, "log-level", "info", "Log level (debug|info|warn|error)")
	flag.StringVar(&cfg.log.format, "log-format", "text", "Log format (text|json|logfmt)")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	if cfg.llm.apiKey == "" {
		switch cfg.llm.provider {
		case "anthropic":
			cfg.llm.apiKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.llm.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connection pool established")

	v, err := vault.New(cfg.secretKey)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	provider, err := agent.NewProvider(cfg.llm.provider, cfg.llm.apiKey)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	var m *mailer.Mailer
	if cfg.smtp.host != "" {
		m, err = mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}

	var yt *youtube.Client
	if cfg.yt.apiKey != "" {
		yt, err = youtube.New(cfg.yt.apiKey)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}

	sp, err := spotify.New(cfg.sp.clientID, cfg.sp.clientSecret)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	sessionStore := postgresstore.New(db)
	defer sessionStore.StopCleanup()

	app := &application{
		config:   cfg,
		logger:   logger,
		models:   data.NewModels(db),
		mailer:   m,
		youtube:  yt,
		spotify:  sp,
		auth:     spotify.NewAuthenticator(cfg.sp.clientID, cfg.sp.clientSecret, cfg.sp.redirectURI),
		provider: provider,
		agents:   agent.NewRegistry(),
		sessions: newSessionManager(cfg, sessionStore),
		vault:    v,
	}

	// ======== EXPVAR ========
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stats()
	}))
	expvar.Publish("timestamp", expvar.Func(func() any {
		return time.Now().Unix()
	}))
	expvar.Publish("active_agents", expvar.Func(func() any {
		return app.agents.Len()
	}))
	// ======== END EXPVAR ========

	err = app.serve()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg config) (*slog.Logger, error) {
	level, err := log.ParseLevel(cfg.log.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var formatter log.Formatter
	switch cfg.log.format {
	case "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("invalid log format: %q", cfg.log.format)
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	return slog.New(handler), nil
}

func newSessionManager(cfg config, store scs.Store) *scs.SessionManager {
	sessions := scs.New()
	if store != nil {
		sessions.Store = store
	}
	sessions.Lifetime = cfg.session.lifetime
	sessions.Cookie.Name = "tunesmith_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.env == "production"
	return sessions
}

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
