package usecase

import (
	"clickmap/internal/config"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sourceServiceName = "URLSource"
	sourceTracer      = "usecase.source"

	httpScheme  = "http://"
	httpsScheme = "https://"
)

// URLSource loads the newline-delimited list of sites to scan.
type URLSource struct {
	path   string
	logger *zap.Logger
	tracer trace.Tracer
}

type URLSourceParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewURLSource(params URLSourceParams) *URLSource {
	return &URLSource{
		path:   params.Config.ScanConfig.URLFile,
		logger: params.Logger.With(zap.String(logg.Layer, sourceServiceName)),
		tracer: otel.Tracer(sourceTracer),
	}
}

// Load reads the URL file and returns its normalized entries in file order.
// A missing or unreadable file is a source_read error.
func (s *URLSource) Load(ctx context.Context) (urls []string, err error) {
	const op = "Load"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, s.path))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("path", s.path))
	defer func() {
		step.End(err)
	}()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeSourceRead, err, map[string]any{
			apperr.MetaReason: "read_url_file_failed",
			apperr.MetaStage:  apperr.StageSource,
			apperr.MetaPath:   s.path,
		})
	}

	urls = ParseURLList(string(data))

	logger.Info("URL list loaded", zap.Int("urls", len(urls)))

	return urls, nil
}

// ParseURLList trims every line, drops blank ones and normalizes the rest.
// Order and duplicates are preserved. Entries are not validated here: one
// that is not a usable URL fails when it is processed and is reported as
// abandoned.
func ParseURLList(text string) []string {
	urls := make([]string, 0)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		urls = append(urls, NormalizeURL(line))
	}

	return urls
}

// NormalizeURL prefixes https:// unless the entry already carries an http or
// https scheme.
func NormalizeURL(entry string) string {
	if strings.HasPrefix(entry, httpScheme) || strings.HasPrefix(entry, httpsScheme) {
		return entry
	}

	return httpsScheme + entry
}
