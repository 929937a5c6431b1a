package bootstrap

import (
	"clickmap/internal/console"
	"clickmap/internal/ports"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runConsole(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	consoleInterface *console.Interface,
	req console.Request,
	browser ports.BrowserManager,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting clickmap", zap.String("command", string(req.Command)))

			if req.NeedsBrowser() {
				logger.Info("Launching browser...", zap.String("engine", browser.Engine()))

				if err := browser.Launch(ctx); err != nil {
					logger.Error("Failed to launch browser", zap.Error(err))

					return err
				}

				logger.Info("Browser launched successfully")
			}

			consoleInterface.Start(func(code int) {
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Debug("Shutdown already in progress", zap.Error(err))
				}
			})

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down clickmap...")

			if err := consoleInterface.Stop(ctx); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))

				return err
			}

			return nil
		},
	})
}
