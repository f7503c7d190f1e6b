// Package web parses web command configuration and runs the prep web server.
package web

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/cmd/backend"
	entrypoint "github.com/prestigeprep/prep/internal/platform/cmd"
	"github.com/prestigeprep/prep/internal/platform/config"
	"github.com/prestigeprep/prep/internal/platform/id"
	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/otel"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
	"github.com/prestigeprep/prep/internal/services/web"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/platform/session"
)

// DiagEnv names the variables whose lengths /api/diag reports.
var DiagEnv = []string{
	"PREP_GCS_BUCKET",
	"PREP_GCP_PROJECT",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON_B64",
	"PREP_GOOGLE_CLIENT_ID",
	"PREP_GOOGLE_CLIENT_SECRET",
	"PREP_SESSION_SECRET",
	"PREP_AGENT_TOKEN",
}

// Config holds web command configuration.
type Config struct {
	HTTPAddr      string `env:"PREP_WEB_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PREP_PUBLIC_BASE_URL"`
	TrustProxy    bool   `env:"PREP_TRUST_PROXY"`

	SessionSecret      string        `env:"PREP_SESSION_SECRET"`
	SessionTTL         time.Duration `env:"PREP_SESSION_TTL" envDefault:"720h"`
	GoogleClientID     string        `env:"PREP_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"PREP_GOOGLE_CLIENT_SECRET"`
	DevLogin           bool          `env:"PREP_AUTH_DEV_LOGIN"`
	AdminEmails        []string      `env:"PREP_ADMIN_EMAILS" envSeparator:","`
	AgentToken         string        `env:"PREP_AGENT_TOKEN"`
	ContactEmail       string        `env:"PREP_CONTACT_EMAIL"`

	// GeneratorDir and WebAgentDir enable the admin agent pages.
	GeneratorDir    string `env:"PREP_GENERATOR_DIR"`
	WebAgentDir     string `env:"PREP_WEBAGENT_DIR"`
	WebAgentPublish string `env:"PREP_WEBAGENT_PUBLISH" envDefault:"pnpm build;sudo /usr/bin/systemctl restart prestige-prep"`

	Storage   backend.Config
	Logging   logging.Settings
	Telemetry otel.Settings
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", cfg.PublicBaseURL, "External origin used for OAuth redirects")
	fs.BoolVar(&cfg.DevLogin, "dev-login", cfg.DevLogin, "Enable the email-only development sign-in")
	fs.StringVar(&cfg.Storage.DocStore, "docstore", cfg.Storage.DocStore, "Document store driver: firestore or sqlite")
	fs.StringVar(&cfg.Storage.SQLitePath, "sqlite-path", cfg.Storage.SQLitePath, "SQLite database path when -docstore=sqlite")
	fs.StringVar(&cfg.Storage.LocalDir, "local-bucket-dir", cfg.Storage.LocalDir, "Serve content from a local directory instead of Cloud Storage")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.AdminEmails = config.TrimList(cfg.AdminEmails)
	return cfg, nil
}

// Run starts the web server and blocks until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(entrypoint.ServiceWeb, cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, entrypoint.RunOptions{
		Telemetry: cfg.Telemetry,
		Logger:    logger,
	}, func(ctx context.Context) error {
		deps, closeDeps, err := Dependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDeps()

		server, err := web.NewServer(ctx, web.Config{HTTPAddr: cfg.HTTPAddr, Dependencies: deps})
		if err != nil {
			return fmt.Errorf("init web server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve web: %w", err)
		}
		return nil
	})
}

// Dependencies opens storage and builds the module dependencies for cfg.
// The returned func releases storage clients.
func Dependencies(ctx context.Context, cfg Config, logger *zap.Logger) (module.Dependencies, func(), error) {
	logger = logging.OrNop(logger)
	b, err := backend.Open(ctx, cfg.Storage, backend.Options{Logger: logger})
	if err != nil {
		return module.Dependencies{}, nil, err
	}
	closeAll := func() {
		if err := b.Close(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}

	restoreCtx, cancel := context.WithTimeout(ctx, timeouts.StorageCall)
	restored, err := b.Content.RestoreCurrent(restoreCtx)
	cancel()
	switch {
	case err != nil:
		logger.Warn("restore current set", zap.Error(err))
	case restored:
		current := b.Content.Current()
		logger.Info("restored current set", zap.String("set", current.Set), zap.Int("count", current.Count))
	}

	policy := requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustProxy}
	secret := strings.TrimSpace(cfg.SessionSecret)
	if secret == "" {
		secret = id.NewToken()
		logger.Warn("PREP_SESSION_SECRET is unset; sessions will not survive a restart")
	}
	sessions, err := session.NewManager(session.Config{
		Secret: []byte(secret),
		TTL:    cfg.SessionTTL,
		Policy: policy,
	})
	if err != nil {
		closeAll()
		return module.Dependencies{}, nil, fmt.Errorf("session manager: %w", err)
	}

	deps := module.Dependencies{
		Logger:   logger,
		Content:  b.Content,
		Practice: b.Practice,
		Sessions: sessions,
		Access:   authz.NewPolicy(cfg.AdminEmails),
		Bucket:   b.Bucket,
		Store:    b.Store,

		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		PublicBaseURL:      cfg.PublicBaseURL,
		DevLogin:           cfg.DevLogin,

		RequestSchemePolicy: policy,
		HTTPClient: &http.Client{
			Timeout:   timeouts.StorageCall,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},

		ContactEmail: cfg.ContactEmail,

		AgentToken: cfg.AgentToken,
		DiagEnv:    DiagEnv,
	}
	if deps.Generator, err = supervisor(cfg.GeneratorDir, agent.GeneratorProfile, logger); err != nil {
		closeAll()
		return module.Dependencies{}, nil, err
	}
	webProfile := func(dir string) agent.Profile { return agent.WebAgentProfile(dir, cfg.WebAgentPublish) }
	if deps.WebAgent, err = supervisor(cfg.WebAgentDir, webProfile, logger); err != nil {
		closeAll()
		return module.Dependencies{}, nil, err
	}
	if cfg.AgentToken == "" {
		logger.Warn("PREP_AGENT_TOKEN is unset; agent APIs are open")
	}
	return deps, closeAll, nil
}

func supervisor(dir string, layout func(string) agent.Profile, logger *zap.Logger) (*agent.Supervisor, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	profile := layout(dir)
	sup, err := agent.NewSupervisor(profile, agent.WithLogger(logger.Named(profile.Name)))
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", profile.Name, err)
	}
	return sup, nil
}
