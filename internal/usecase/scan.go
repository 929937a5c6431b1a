package usecase

import (
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scanServiceName = "ScanService"
	scanTracer      = "usecase.scan"
)

// ScanService feeds the URL list through the page processor strictly in
// order, one URL at a time.
type ScanService struct {
	source    *URLSource
	processor *PageProcessor
	store     ports.ReportStore
	logger    *zap.Logger
	tracer    trace.Tracer
}

type ScanServiceParams struct {
	fx.In

	Logger    *zap.Logger
	Source    *URLSource
	Processor *PageProcessor
	Store     ports.ReportStore
}

func NewScanService(params ScanServiceParams) *ScanService {
	return &ScanService{
		source:    params.Source,
		processor: params.Processor,
		store:     params.Store,
		logger:    params.Logger.With(zap.String(logg.Layer, scanServiceName)),
		tracer:    otel.Tracer(scanTracer),
	}
}

func (s *ScanService) LoadURLs(ctx context.Context) ([]string, error) {
	return s.source.Load(ctx)
}

// Run loads the URL list and processes it. Only source and output directory
// errors are returned; per-URL failures are reported in the result.
func (s *ScanService) Run(ctx context.Context, observer ports.ScanObserver) (*entity.BatchResult, error) {
	urls, err := s.LoadURLs(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.Prepare(ctx); err != nil {
		return nil, err
	}

	return s.RunBatch(ctx, urls, observer), nil
}

func (s *ScanService) RunBatch(ctx context.Context, urls []string, observer ports.ScanObserver) (result *entity.BatchResult) {
	const op = "RunBatch"

	runID := uuid.New()
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, runID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("run_id", runID.String()),
		attribute.Int("urls", len(urls)))

	result = &entity.BatchResult{
		RunID:     runID,
		StartedAt: time.Now(),
		Outcomes:  make([]entity.Outcome, 0, len(urls)),
	}

	defer func() {
		result.FinishedAt = time.Now()
		step.End(nil)
	}()

	logger.Info("Scan started", zap.Int("urls", len(urls)))

	if observer != nil {
		observer.BatchStarted(len(urls))
	}

	for _, u := range urls {
		if ctx.Err() != nil {
			logger.Warn("Scan interrupted", zap.Int("remaining", len(urls)-len(result.Outcomes)))

			break
		}

		outcome := s.processor.Process(ctx, u)
		result.Outcomes = append(result.Outcomes, outcome)

		if observer != nil {
			observer.URLFinished(outcome)
		}
	}

	logger.Info("Scan finished",
		zap.Int("done", result.Done()),
		zap.Int("abandoned", result.Abandoned()),
		zap.Duration("elapsed", time.Since(result.StartedAt)))

	return result
}
