package browser

import (
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const rodTracer = "browser.rod"

// RodManager drives Chromium over CDP with go-rod.
type RodManager struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	ready    bool
}

func NewRodManager(params Params) *RodManager {
	return &RodManager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName), zap.String(logg.Engine, config.EngineRod)),
		tracer: otel.Tracer(rodTracer),
	}
}

func (m *RodManager) Engine() string {
	return config.EngineRod
}

func (m *RodManager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	l := launcher.New().Headless(m.config.BrowserConfig.Headless)
	if path, found := launcher.LookPath(); found {
		l = l.Bin(path)
	}
	m.launcher = l

	step.AddEvent("starting chromium")

	controlURL, err := l.Launch()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		l.Kill()

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_connect_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	if err = m.openPage(); err != nil {
		if closeErr := m.release(); closeErr != nil {
			logger.Warn("Failed to release partially launched browser", zap.Error(closeErr))
		}

		return err
	}

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *RodManager) openPage() error {
	const op = "openPage"

	page, err := m.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.config.BrowserConfig.ViewportWidth,
		Height:            m.config.BrowserConfig.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "viewport_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.page = page

	return nil
}

func (m *RodManager) Close(ctx context.Context) (err error) {
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

func (m *RodManager) release() error {
	var err error

	if m.page != nil {
		err = multierr.Append(err, m.page.Close())
		m.page = nil
	}

	if m.browser != nil {
		err = multierr.Append(err, m.browser.Close())
		m.browser = nil
	}

	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}

	return err
}

func (m *RodManager) checkReady(op string) error {
	if !m.ready || m.page == nil {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	return nil
}

func (m *RodManager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return err
	}

	page := m.page.Context(ctx).Timeout(time.Duration(m.config.BrowserConfig.Timeout) * time.Millisecond)
	defer page.CancelTimeout()

	step.AddEvent("navigating to URL")

	if err = page.Navigate(url); err == nil {
		err = page.WaitLoad()
	}

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

func (m *RodManager) QueryAllElements(ctx context.Context) (elements []ports.Element, err error) {
	const op = "QueryAllElements"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return nil, err
	}

	found, err := m.page.Elements(allElements)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeScanFailed, err, map[string]any{
			apperr.MetaReason: "query_selector_all_failed",
			apperr.MetaStage:  apperr.StageScanning,
		})
	}

	elements = make([]ports.Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &rodElement{el: el})
	}

	step.SetAttributes(attribute.Int("elements", len(elements)))

	return elements, nil
}

func (m *RodManager) Screenshot(ctx context.Context) (image []byte, err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.checkReady(op); err != nil {
		return nil, err
	}

	image, err = m.page.Screenshot(m.config.BrowserConfig.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeReportWriteFailed, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return image, nil
}

func (m *RodManager) IsReady() bool {
	return m.ready
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) IsVisible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) IsEnabled() (bool, error) {
	disabled, err := e.el.Disabled()
	if err != nil {
		return false, err
	}

	return !disabled, nil
}

// Evaluate binds the element as the script's argument; rod passes it as this.
func (e *rodElement) Evaluate(script string) (interface{}, error) {
	res, err := e.el.Eval(fmt.Sprintf("function () { return (%s)(this) }", script))
	if err != nil {
		return nil, err
	}

	return res.Value.Val(), nil
}

func (e *rodElement) BoundingBox() (*entity.BoundingBox, error) {
	shape, err := e.el.Shape()
	if err != nil {
		return nil, err
	}

	box := shape.Box()
	if box == nil {
		return nil, nil
	}

	return &entity.BoundingBox{
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
	}, nil
}

func (e *rodElement) Dispose() error {
	return e.el.Release()
}
