package browser

import (
	"clickmap/internal/config"
	"clickmap/internal/ports"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	allElements        = "*"
)

type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName), zap.String(logg.Engine, config.EnginePlaywright)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Engine() string {
	return config.EnginePlaywright
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	if m.config.BrowserConfig.Install {
		step.AddEvent("installing playwright")

		err = playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
			Verbose:  m.config.AppConfig.Debug,
		})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if err = m.launchBrowser(); err != nil {
		if closeErr := m.release(); closeErr != nil {
			logger.Warn("Failed to release partially launched browser", zap.Error(closeErr))
		}

		return err
	}

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) launchBrowser() error {
	const op = "launchBrowser"

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.config.BrowserConfig.ViewportWidth,
			Height: m.config.BrowserConfig.ViewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.page = page

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser...")

	m.ready = false

	if err = m.release(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_close_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Browser closed")

	return nil
}

// release tears down context, browser and driver in that order, keeping
// every error.
func (m *Manager) release() error {
	var err error

	if m.browserContext != nil {
		err = multierr.Append(err, m.browserContext.Close())
		m.browserContext = nil
	}

	if m.browser != nil {
		err = multierr.Append(err, m.browser.Close())
		m.browser = nil
	}

	if m.playwright != nil {
		err = multierr.Append(err, m.playwright.Stop())
		m.playwright = nil
	}

	m.page = nil

	return err
}

func (m *Manager) ensurePageActive() error {
	if m.browserContext == nil {
		return fmt.Errorf("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, opening a new one...")

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.page = page

	return nil
}

func (m *Manager) checkReady(op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) QueryAllElements(ctx context.Context) (elements []ports.Element, err error) {
	const op = "QueryAllElements"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return nil, err
	}

	handles, err := m.page.QuerySelectorAll(allElements)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeScanFailed, err, map[string]any{
			apperr.MetaReason: "query_selector_all_failed",
			apperr.MetaStage:  apperr.StageScanning,
		})
	}

	elements = make([]ports.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}

	step.SetAttributes(attribute.Int("elements", len(elements)))

	return elements, nil
}

func (m *Manager) Screenshot(ctx context.Context) (image []byte, err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return nil, err
	}

	image, err = m.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(m.config.BrowserConfig.FullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeReportWriteFailed, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return image, nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}
