package bootstrap

import (
	"clickmap/internal/browser"
	"clickmap/internal/config"
	"clickmap/internal/console"
	"clickmap/internal/ports"
	"clickmap/internal/report"
	"clickmap/internal/usecase"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// playwright may download its driver and chromium on first launch
	startTimeout = 5 * time.Minute
	stopTimeout  = time.Minute
)

// Overrides are command line values that take precedence over the
// environment. Zero values leave the environment setting in place.
type Overrides struct {
	URLFile  string
	Engine   string
	Annotate bool
}

func NewApp(req console.Request, overrides Overrides) *fx.App {
	return fx.New(appOptions(req, overrides))
}

func appOptions(req console.Request, overrides Overrides) fx.Option {
	return fx.Options(
		fx.Supply(req, overrides),

		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			browser.New,
			fx.Annotate(report.NewFileStore, fx.As(new(ports.ReportStore))),
			fx.Annotate(report.NewAnnotator, fx.As(new(ports.Annotator))),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Decorate(applyOverrides),

		fx.WithLogger(newEventLogger),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			runConsole,
		),

		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
	)
}

func applyOverrides(conf *config.Config, overrides Overrides) (*config.Config, error) {
	if overrides.URLFile != "" {
		conf.ScanConfig.URLFile = overrides.URLFile
	}

	if overrides.Engine != "" {
		conf.BrowserConfig.Engine = overrides.Engine
	}

	if overrides.Annotate {
		conf.ScanConfig.Annotate = true
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func newEventLogger(logger *zap.Logger) fxevent.Logger {
	l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
	l.UseLogLevel(zapcore.DebugLevel)

	return l
}
