package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"impedancecli/internal/archive"
	"impedancecli/internal/config"
	"impedancecli/internal/dataprocessing"
	"impedancecli/internal/exporter"
	"impedancecli/internal/files"
	"impedancecli/internal/infrastructure"
	"impedancecli/internal/notify"
	"impedancecli/internal/operations"
	"impedancecli/internal/plot"
	"impedancecli/internal/security"
	"impedancecli/internal/validation"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires one report run from the configuration
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Pipeline      *operations.Pipeline

	clock         func() time.Time
	senderFactory notify.SenderFactory
	credentials   notify.CredentialProvider
	otelConfig    *infrastructure.OTelConfig
}

// Option customises an Application
type Option func(*Application)

// WithLogger replaces the logger built from the logging config
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// WithClock fixes the time the week folder is computed from
func WithClock(clock func() time.Time) Option {
	return func(a *Application) { a.clock = clock }
}

// WithSenderFactory replaces SMTP delivery
func WithSenderFactory(factory notify.SenderFactory) Option {
	return func(a *Application) { a.senderFactory = factory }
}

// WithCredentials replaces the configured credential store
func WithCredentials(creds notify.CredentialProvider) Option {
	return func(a *Application) { a.credentials = creds }
}

// WithOTelConfig replaces the telemetry settings derived from the config
func WithOTelConfig(cfg *infrastructure.OTelConfig) Option {
	return func(a *Application) { a.otelConfig = cfg }
}

// NewApplication validates cfg and builds every component of the run. A
// nil cfg is loaded from the config file and environment.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	app := &Application{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = logger
	}

	app.Logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID),
		slog.String("input_dir", cfg.Paths.InputDir),
		slog.String("output_dir", cfg.Paths.OutputDir),
		slog.Bool("mail_enabled", cfg.Mail.Enabled))

	if err := validation.NewFileValidator(app.Logger).ValidatePaths(cfg.Paths); err != nil {
		return nil, err
	}

	otelCfg := app.otelConfig
	if otelCfg == nil {
		otelCfg = infrastructure.NewOTelConfig(cfg.Telemetry)
	}
	providers, err := infrastructure.InitializeOTel(otelCfg, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	app.OTelProviders = providers

	app.Pipeline = app.buildPipeline()
	return app, nil
}

func (a *Application) buildPipeline() *operations.Pipeline {
	cfg := a.Config
	logger := a.Logger

	deps := operations.Dependencies{
		Finder:   files.NewDiscovery(""),
		Checker:  validation.NewFileValidator(infrastructure.WithComponent(logger, "validation")),
		Parser:   dataprocessing.NewParser(cfg.Analysis.SkipLines, infrastructure.WithComponent(logger, "parser")),
		Analyzer: dataprocessing.NewAnalyzer(cfg.Analysis.Threshold, infrastructure.WithComponent(logger, "analyzer")),
		Renderer: plot.NewRenderer(plot.OptionsFromConfig(cfg.Chart)),
		Exporter: exporter.NewSummaryExporter(infrastructure.WithComponent(logger, "exporter")),
		Archiver: archive.NewArchiver(files.NewManager(logger), infrastructure.WithComponent(logger, "archive")),
	}
	// Left as a nil interface when mail is off; the notify steps check for it.
	if cfg.Mail.Enabled {
		deps.Notifier = notify.NewNotifier(cfg.Mail, a.credentialProvider(), a.senderFactory, infrastructure.WithComponent(logger, "notify"))
	}

	opCfg := operations.NewConfig()
	opCfg.StepTimeout = cfg.Telemetry.StepTimeout
	if notifyTimeout := cfg.Mail.Timeout + time.Minute; notifyTimeout > opCfg.GetStepTimeout(operations.StepIDNotify) {
		opCfg.SetStepTimeout(operations.StepIDNotify, notifyTimeout)
		opCfg.SetStepTimeout(operations.StepIDNotifyEmpty, notifyTimeout)
	}

	manager := operations.NewManager(opCfg, operations.NewOperationTracer(a.OTelProviders), logger)
	return operations.NewPipeline(deps, cfg.Paths, manager, a.clock, logger)
}

func (a *Application) credentialProvider() notify.CredentialProvider {
	if a.credentials != nil {
		return a.credentials
	}
	mail := a.Config.Mail
	if mail.CredentialStore == "file" {
		return security.NewFileCredentials(mail.CredentialsFile, mail.SealKeyEnv, a.Logger)
	}
	return notify.EnvCredentials{UsernameEnv: mail.UsernameEnv, PasswordEnv: mail.PasswordEnv}
}

// Run executes one weekly batch and pushes its metrics. Push failures are
// logged and do not change the run's outcome.
func (a *Application) Run(ctx context.Context) (*operations.RunReport, error) {
	report, err := a.Pipeline.Run(ctx)

	if pushErr := a.OTelProviders.Push(ctx); pushErr != nil {
		a.Logger.WarnContext(ctx, "failed to push metrics", slog.String("error", pushErr.Error()))
	}
	return report, err
}

// Shutdown flushes telemetry and closes the log file
func (a *Application) Shutdown(ctx context.Context) error {
	var err error
	if a.OTelProviders != nil {
		err = a.OTelProviders.Shutdown(ctx)
	}
	if closeErr := infrastructure.CloseLogFile(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
