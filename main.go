package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"outlook_backend/core"
	"outlook_backend/core/validation"
	"outlook_backend/db"
	"outlook_backend/extract"
	"outlook_backend/llm"
	"outlook_backend/logging"
	"outlook_backend/metrics"
	"outlook_backend/pipeline"
	"outlook_backend/promptbudget"
	"outlook_backend/shutdown"
	"outlook_backend/webui"
	"outlook_backend/webui/auth"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envFile           = ".env"
	retentionInterval = 24 * time.Hour
)

func main() {
	if HandleServiceCommand(os.Args) {
		return
	}

	isService, err := RunAsService()
	if isService {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		return
	}

	os.Exit(run(nil))
}

// run starts the application and blocks until it shuts down. A receive
// on stop triggers the same graceful shutdown as SIGTERM; the Windows
// service controller uses it. The result is the process exit code.
func run(stop <-chan struct{}) int {
	if err := godotenv.Load(envFile); err != nil {
		// Logger isn't initialized yet
		fmt.Printf("Warning: %s not loaded: %v\n", envFile, err)
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := logging.ParseLogLevel("LOG_LEVEL", defaultLevel)

	logger, err := logging.New(logging.Options{
		Development: isDevelopment,
		FilePath:    core.GetEnvOrDefault("LOG_FILE", "app.log"),
		Level:       &level,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	logger.Info("Logger initialized",
		zap.Bool("development", logger.IsDevelopment()),
		zap.String("level", level.String()),
		zap.String("file", logger.FilePath()),
	)

	result, code := runStartupValidation(logger)
	if code != core.ExitCodeSuccess {
		logger.Sync()
		return code
	}

	app, err := newApplication(result, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		logger.Sync()
		return core.ExitCodeFor(err)
	}
	return app.serve(stop)
}

// runStartupValidation checks configuration, template budget and history
// storage before anything is started.
func runStartupValidation(logger *logging.Logger) (validation.SuiteResult, int) {
	logger.Info("Starting startup validation...", zap.String("version", core.GetVersionInfo()))

	suite := validation.NewValidationSuite().
		WithEnvPath(envFile).
		WithAPICheck(os.Getenv("VALIDATE_API") == "true").
		WithShowProgress(true)

	result := suite.Validate(context.Background())
	if !result.Success {
		logger.Error("Configuration validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)
		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.String("code", core.GetErrorCode(step.Error)),
					zap.Error(step.Error),
				)
			}
		}
		return result, core.ExitCodeFor(result.GetFirstError())
	}

	if result.Tokenizer.Fallback {
		logger.Warn("Tokenizer unavailable, using character estimate",
			zap.String("model", result.Config.Model),
			zap.String("counter", result.Tokenizer.Name),
			zap.Error(result.Tokenizer.Err),
		)
	}

	logger.Info("Configuration validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return result, core.ExitCodeSuccess
}

// application holds everything started by newApplication.
type application struct {
	cfg      *core.Config
	logger   *logging.Logger
	manager  *shutdown.Manager
	server   *webui.Server
	repo     *db.Repository
	recorder *db.Recorder
	stats    *metrics.Store
}

func newApplication(result validation.SuiteResult, logger *logging.Logger) (*application, error) {
	cfg := result.Config
	zl := logger.Zap()

	logger.Info("Configuration loaded",
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.OpenAIBaseURL),
		zap.Float32("temperature", cfg.Temperature),
		zap.Int("max_output_tokens", cfg.MaxOutputTokens),
		zap.Int("prompt_budget", cfg.PromptMaxTokens),
		zap.Int("chunk_chars", cfg.PromptChunkChars),
		zap.Int("overhead_tokens", result.OverheadTokens),
		zap.String("tokenizer", result.Tokenizer.Name),
		zap.String("prompt_file", cfg.PromptFile),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.String("addr", cfg.Addr()),
		zap.Bool("history", cfg.HistoryEnabled()),
		zap.Bool("auth", cfg.AuthEnabled()),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
	)

	assembler, err := promptbudget.NewAssembler(result.Template, cfg.PromptMaxTokens, cfg.PromptChunkChars, result.Tokenizer.Counter)
	if err != nil {
		var ce *promptbudget.ConfigurationError
		if errors.As(err, &ce) {
			return nil, core.ErrTemplateOverflow(ce.Overhead, ce.Budget)
		}
		return nil, core.ErrInvalidValue(err.Error())
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: core.GetHTTPClient(cfg, 0),
		Timeout:    cfg.AITimeout,
	})
	if err != nil {
		return nil, core.ErrMissingConfig("OPENAI_API_KEY")
	}

	extractor := extract.NewRegistry()
	extractor.MaxFileSize = cfg.MaxFileSize

	app := &application{
		cfg:     cfg,
		logger:  logger,
		manager: shutdown.NewManager(zl),
		stats:   metrics.NewStore(metrics.DefaultCapacity, time.Now()),
	}

	genOpts := []pipeline.Option{pipeline.WithRecorder(app.stats)}
	if cfg.HistoryEnabled() {
		repo, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return nil, core.ErrDatabasePath(cfg.DatabasePath, err)
		}
		app.repo = repo
		app.recorder = db.NewRecorder(repo, zl.Named("history"), db.DefaultQueueCapacity)
		genOpts = append(genOpts, pipeline.WithRecorder(app.recorder))
	}

	generator, err := pipeline.NewGenerator(pipeline.Config{
		Title:           cfg.Title,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, extractor, assembler, completer, logger.Named("pipeline"), genOpts...)
	if err != nil {
		app.closeStorage()
		return nil, err
	}

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.WriteTimeout = cfg.AITimeout + 60*time.Second
	serverCfg.MaxFiles = cfg.MaxUploadFiles
	serverCfg.MaxFileSize = cfg.MaxFileSize
	serverCfg.Title = cfg.Title
	serverCfg.Description = cfg.Description
	serverCfg.Version = core.GetVersionInfo()
	serverCfg.DownloadTTL = cfg.DownloadTTL
	serverCfg.RateLimitPerMinute = cfg.RateLimitPerMinute

	serverOpts := []webui.ServerOption{
		webui.WithOperationRunner(app.manager),
		webui.WithStats(app.stats),
	}
	if app.repo != nil {
		serverOpts = append(serverOpts, webui.WithHistory(app.repo))
	}
	if cfg.AuthEnabled() {
		hash, err := auth.PrepareHash(cfg.WebUIPassword, auth.DefaultCost)
		if err != nil {
			app.closeStorage()
			return nil, core.ErrInvalidValue(fmt.Sprintf("WEBUI_PWD: %v", err))
		}
		basic, err := auth.NewBasicAuth(hash, zl.Named("auth"))
		if err != nil {
			app.closeStorage()
			return nil, err
		}
		serverOpts = append(serverOpts, webui.WithAuth(basic))
	}

	server, err := webui.NewServer(serverCfg, generator, zl.Named("webui"), serverOpts...)
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	app.server = server

	app.registerShutdown()
	return app, nil
}

// registerShutdown orders cleanup: stop accepting requests, flush the
// history queue, close the database, flush logs.
func (a *application) registerShutdown() {
	a.manager.Register("webui", shutdown.PriorityServer, shutdown.ShutdownServer(a.server))
	if a.recorder != nil {
		a.manager.Register("history-recorder", shutdown.PriorityWorkers, a.recorder.Close)
	}
	if a.repo != nil {
		a.manager.Register("database", shutdown.PriorityStorage, shutdown.CloseResource(a.repo))
	}
	a.manager.Register("logger", shutdown.PriorityLogging, shutdown.SyncLogger(a.logger.Zap()))
}

// startBackground launches the workers that only make sense once the
// application is fully built. They stop when ctx is cancelled.
func (a *application) startBackground(ctx context.Context) {
	if a.repo != nil {
		db.StartRetention(ctx, a.repo, a.cfg.HistoryRetention, retentionInterval, a.logger.Zap().Named("history"))
	}
}

func (a *application) closeStorage() {
	if a.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.recorder.Close(ctx)
		cancel()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// serve runs the web server until a signal, a stop request or a server
// failure, then shuts down gracefully.
func (a *application) serve(stop <-chan struct{}) int {
	a.manager.Start()
	ctx := a.manager.Context()
	a.startBackground(ctx)

	if stop != nil {
		go func() {
			select {
			case <-stop:
				a.manager.Trigger("service stop requested")
			case <-ctx.Done():
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Start(ctx); err != nil {
			serverErr <- err
			a.manager.Trigger("web server failed")
		}
	}()

	a.logger.Info("Forecast service ready",
		zap.String("url", "http://"+a.cfg.Addr()),
		zap.String("version", core.GetVersionInfo()),
	)

	a.manager.Wait()

	exitCode := core.ExitCodeSuccess
	select {
	case err := <-serverErr:
		a.logger.Error("Web server stopped unexpectedly", zap.Error(err))
		exitCode = core.ExitCodeError
	default:
	}

	if err := a.manager.Shutdown(); err != nil {
		a.logger.Error("Shutdown completed with errors", zap.Error(err))
		if exitCode == core.ExitCodeSuccess {
			exitCode = core.ExitCodeError
		}
	}
	a.logger.Info("Goodbye!", zap.String("exit", core.ExitCodeName(exitCode)))
	return exitCode
}
