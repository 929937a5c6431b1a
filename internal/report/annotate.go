package report

import (
	"bytes"
	"clickmap/internal/entity"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	annotatorName   = "Annotator"
	annotatorTracer = "report.annotator"
	outlineWidth    = 2
)

var outlineColor = color.RGBA{R: 255, A: 255}

// Annotator draws report bounding boxes onto the page screenshot.
type Annotator struct {
	dir      string
	visDir   string
	maxWidth uint
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewAnnotator(params Params) *Annotator {
	return &Annotator{
		dir:      params.Config.ScanConfig.OutputDir,
		visDir:   params.Config.ScanConfig.VisDir,
		maxWidth: params.Config.ScanConfig.AnnotateMaxWidth,
		logger:   params.Logger.With(zap.String(logg.Layer, annotatorName)),
		tracer:   otel.Tracer(annotatorTracer),
	}
}

// Annotate renders <vis>/<stem>.png from <output>/<stem>.json and .png.
func (a *Annotator) Annotate(ctx context.Context, stem string) (path string, err error) {
	const op = "Annotate"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Stem, stem))

	_, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String("stem", stem))
	defer func() {
		step.End(err)
	}()

	elements, err := ReadElements(filepath.Join(a.dir, stem+JSONExt))
	if err != nil {
		return "", a.annotateErr(op, "read_report_failed", err)
	}

	f, err := os.Open(filepath.Join(a.dir, stem+PNGExt))
	if err != nil {
		return "", a.annotateErr(op, "open_screenshot_failed", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return "", a.annotateErr(op, "decode_screenshot_failed", err)
	}

	out := Downscale(DrawBoxes(img, elements), a.maxWidth)

	var buf bytes.Buffer
	if err = png.Encode(&buf, out); err != nil {
		return "", a.annotateErr(op, "encode_failed", err)
	}

	if err = os.MkdirAll(a.visDir, dirPerm); err != nil {
		return "", a.annotateErr(op, "mkdir_failed", err)
	}

	path = filepath.Join(a.visDir, stem+PNGExt)
	if err = os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return "", a.annotateErr(op, "write_failed", err)
	}

	logger.Info("Annotated screenshot written", zap.String(logg.Path, path), zap.Int(logg.Elements, len(elements)))

	return path, nil
}

// AnnotateAll annotates every report in the output directory that has a
// matching screenshot, in name order.
func (a *Annotator) AnnotateAll(ctx context.Context) ([]string, error) {
	const op = "AnnotateAll"

	matches, err := filepath.Glob(filepath.Join(a.dir, "*"+JSONExt))
	if err != nil {
		return nil, a.annotateErr(op, "glob_failed", err)
	}

	sort.Strings(matches)

	var paths []string
	for _, match := range matches {
		stem := strings.TrimSuffix(filepath.Base(match), JSONExt)

		if _, err := os.Stat(filepath.Join(a.dir, stem+PNGExt)); err != nil {
			a.logger.Debug("Skipping report without screenshot", zap.String(logg.Stem, stem))

			continue
		}

		path, err := a.Annotate(ctx, stem)
		if err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

func (a *Annotator) annotateErr(op, reason string, err error) error {
	return apperr.Wrap(op, apperr.CodeReportWriteFailed, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageAnnotate,
	})
}

// DrawBoxes returns a copy of img with a red outline around each element,
// clipped to the image bounds.
func DrawBoxes(img image.Image, elements []entity.ElementDescriptor) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	stroke := image.NewUniform(outlineColor)

	for _, el := range elements {
		r := image.Rect(
			int(el.X),
			int(el.Y),
			int(el.X+el.Width),
			int(el.Y+el.Height),
		).Add(bounds.Min)

		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth),
			image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y),
			image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y),
		}

		for _, edge := range edges {
			edge = edge.Intersect(bounds)
			if edge.Empty() {
				continue
			}

			draw.Draw(canvas, edge, stroke, image.Point{}, draw.Src)
		}
	}

	return canvas
}

// Downscale shrinks img to maxWidth keeping its aspect ratio. A zero maxWidth
// or a narrower image is returned unchanged.
func Downscale(img image.Image, maxWidth uint) image.Image {
	if maxWidth == 0 || uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}

	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}
