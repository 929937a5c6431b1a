package usecase

import (
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"clickmap/internal/report"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	processorName   = "PageProcessor"
	processorTracer = "usecase.processor"
)

// PageProcessor runs one URL through navigate, scan and report, retrying the
// whole sequence from navigation until the attempt ceiling is reached.
type PageProcessor struct {
	browser     ports.BrowserManager
	store       ports.ReportStore
	annotator   ports.Annotator
	classifier  *Classifier
	limiter     *rate.Limiter
	maxAttempts int
	annotate    bool
	logger      *zap.Logger
	tracer      trace.Tracer
}

type PageProcessorParams struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Browser    ports.BrowserManager
	Store      ports.ReportStore
	Annotator  ports.Annotator
	Classifier *Classifier
}

func NewPageProcessor(params PageProcessorParams) *PageProcessor {
	return &PageProcessor{
		browser:     params.Browser,
		store:       params.Store,
		annotator:   params.Annotator,
		classifier:  params.Classifier,
		limiter:     newNavigationLimiter(params.Config.ScanConfig.NavigationRate),
		maxAttempts: params.Config.ScanConfig.MaxAttempts,
		annotate:    params.Config.ScanConfig.Annotate,
		logger:      params.Logger.With(zap.String(logg.Layer, processorName)),
		tracer:      otel.Tracer(processorTracer),
	}
}

func newNavigationLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// nextState is the transition function of the per-URL machine. attempt is the
// number of navigations started so far.
func nextState(from entity.ProcessState, err error, attempt, maxAttempts int) entity.ProcessState {
	switch from {
	case entity.StatePending:
		if err != nil {
			return entity.StateAbandoned
		}

		return entity.StateNavigating
	case entity.StateNavigating, entity.StateScanning, entity.StateReporting:
		if err != nil {
			if apperr.HasCode(err, apperr.CodeCancelled) {
				return entity.StateAbandoned
			}

			return entity.StateFailed
		}

		switch from {
		case entity.StateNavigating:
			return entity.StateScanning
		case entity.StateScanning:
			return entity.StateReporting
		default:
			return entity.StateDone
		}
	case entity.StateFailed:
		if attempt >= maxAttempts {
			return entity.StateAbandoned
		}

		return entity.StateNavigating
	default:
		return from
	}
}

// Process drives rawURL to Done or Abandoned. Errors never escape: they are
// logged per attempt and carried in the outcome.
func (p *PageProcessor) Process(ctx context.Context, rawURL string) (outcome entity.Outcome) {
	const op = "Process"
	logger := p.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, rawURL))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op, attribute.String("url", rawURL))
	started := time.Now()

	outcome = entity.Outcome{URL: rawURL, State: entity.StatePending}

	defer func() {
		outcome.Duration = time.Since(started)
		step.SetAttributes(
			attribute.String("state", string(outcome.State)),
			attribute.Int("attempts", outcome.Attempts))
		step.End(outcome.Err)
	}()

	var (
		elements []entity.ElementDescriptor
		lastErr  error
	)

	state := entity.StatePending

	for !state.Terminal() {
		var err error

		switch state {
		case entity.StatePending:
			outcome.Stem, err = report.Stem(rawURL)
			if err != nil {
				err = apperr.InvalidReqError(op, "url", err)
			}
		case entity.StateNavigating:
			outcome.Attempts++
			elements = nil
			step.AddEvent("navigating", attribute.Int("attempt", outcome.Attempts))
			err = p.navigate(ctx, rawURL)
		case entity.StateScanning:
			elements, err = p.scan(ctx, logger)
		case entity.StateReporting:
			err = p.report(ctx, logger, outcome.Stem, elements)
		case entity.StateFailed:
			logger.Warn("Attempt failed",
				zap.Int(logg.Attempt, outcome.Attempts),
				zap.Int("max_attempts", p.maxAttempts),
				zap.Error(lastErr))
		}

		if err != nil {
			lastErr = err
		}

		state = nextState(state, err, outcome.Attempts, p.maxAttempts)
	}

	outcome.State = state

	if state == entity.StateAbandoned {
		outcome.Err = lastErr
		logger.Error("Abandoning URL",
			zap.Int(logg.Attempt, outcome.Attempts),
			zap.Error(lastErr))

		return outcome
	}

	outcome.Elements = len(elements)
	logger.Info("URL processed",
		zap.String(logg.Stem, outcome.Stem),
		zap.Int(logg.Attempt, outcome.Attempts),
		zap.Int(logg.Elements, outcome.Elements))

	return outcome
}

func (p *PageProcessor) navigate(ctx context.Context, rawURL string) error {
	const op = "navigate"

	if err := p.limiter.Wait(ctx); err != nil {
		return cancelledErr(op, err)
	}

	if err := ctx.Err(); err != nil {
		return cancelledErr(op, err)
	}

	return p.browser.Navigate(ctx, rawURL)
}

// scan enumerates every element and keeps the clickable ones that have
// geometry. Element-level failures only drop that element.
func (p *PageProcessor) scan(ctx context.Context, logger *zap.Logger) ([]entity.ElementDescriptor, error) {
	const op = "scan"

	handles, err := p.browser.QueryAllElements(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		for _, h := range handles {
			_ = h.Dispose()
		}
	}()

	descriptors := make([]entity.ElementDescriptor, 0)
	failed := 0

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return nil, cancelledErr(op, err)
		}

		desc, ok, err := p.describeIfClickable(h)
		if err != nil {
			failed++
			logger.Debug("Element skipped", zap.Error(err))

			continue
		}

		if ok {
			descriptors = append(descriptors, desc)
		}
	}

	logger.Debug("Scan finished",
		zap.Int("scanned", len(handles)),
		zap.Int("failed", failed),
		zap.Int(logg.Elements, len(descriptors)))

	return descriptors, nil
}

func (p *PageProcessor) describeIfClickable(h ports.Element) (entity.ElementDescriptor, bool, error) {
	desc, verdict, err := p.classifier.Describe(h)
	if err != nil {
		return entity.ElementDescriptor{}, false, err
	}

	if desc == nil {
		if ce := p.logger.Check(zap.DebugLevel, "Element skipped as not clickable"); ce != nil {
			ce.Write(verdictFields(verdict)...)
		}

		return entity.ElementDescriptor{}, false, nil
	}

	return *desc, true, nil
}

func (p *PageProcessor) report(ctx context.Context, logger *zap.Logger, stem string, elements []entity.ElementDescriptor) error {
	const op = "report"

	if err := ctx.Err(); err != nil {
		return cancelledErr(op, err)
	}

	shot, err := p.browser.Screenshot(ctx)
	if err != nil {
		return err
	}

	if err := p.store.Write(ctx, stem, elements, shot); err != nil {
		return err
	}

	if p.annotate {
		if _, err := p.annotator.Annotate(ctx, stem); err != nil {
			logger.Warn("Annotation failed", zap.String(logg.Stem, stem), zap.Error(err))
		}
	}

	return nil
}

func cancelledErr(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeCancelled, err, map[string]any{
		apperr.MetaReason: "context_cancelled",
	})
}
