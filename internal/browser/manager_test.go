package browser

import (
	"clickmap/internal/config"
	"clickmap/pkg/apperr"
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func testParams(t *testing.T, engine string) Params {
	return Params{
		Config: &config.Config{
			AppConfig: &config.AppConfig{},
			BrowserConfig: &config.BrowserConfig{
				Engine:         engine,
				Headless:       true,
				Timeout:        1000,
				ViewportWidth:  1280,
				ViewportHeight: 720,
			},
			ScanConfig: &config.ScanConfig{MaxAttempts: 3, OutputDir: t.TempDir()},
		},
		Logger: zaptest.NewLogger(t),
	}
}

func TestNewSelectsEngine(t *testing.T) {
	if got := New(testParams(t, config.EnginePlaywright)).Engine(); got != config.EnginePlaywright {
		t.Errorf("Engine() = %q, want playwright", got)
	}

	if got := New(testParams(t, config.EngineRod)).Engine(); got != config.EngineRod {
		t.Errorf("Engine() = %q, want rod", got)
	}
}

func TestOperationsBeforeLaunch(t *testing.T) {
	for _, engine := range []string{config.EnginePlaywright, config.EngineRod} {
		t.Run(engine, func(t *testing.T) {
			m := New(testParams(t, engine))
			ctx := context.Background()

			if m.IsReady() {
				t.Fatal("manager must not be ready before Launch")
			}

			if err := m.Navigate(ctx, "https://example.com"); !apperr.HasCode(err, apperr.CodeBrowserNotReady) {
				t.Errorf("Navigate error = %v, want browser_not_ready", err)
			}

			if _, err := m.QueryAllElements(ctx); !apperr.HasCode(err, apperr.CodeBrowserNotReady) {
				t.Errorf("QueryAllElements error = %v, want browser_not_ready", err)
			}

			if _, err := m.Screenshot(ctx); !apperr.HasCode(err, apperr.CodeBrowserNotReady) {
				t.Errorf("Screenshot error = %v, want browser_not_ready", err)
			}

			if err := m.Close(ctx); err != nil {
				t.Errorf("Close on unlaunched manager: %v", err)
			}
		})
	}
}
