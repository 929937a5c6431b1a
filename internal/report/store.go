package report

import (
	"bytes"
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/pkg/apperr"
	"clickmap/pkg/logg"
	"clickmap/pkg/tracing"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	fileStoreName = "ReportStore"
	reportTracer  = "report.store"

	JSONExt = ".json"
	PNGExt  = ".png"

	dirPerm  = 0o755
	filePerm = 0o644
)

// FileStore writes one <stem>.json and one <stem>.png per page into the
// output directory, overwriting earlier runs.
type FileStore struct {
	dir    string
	visDir string
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewFileStore(params Params) *FileStore {
	return &FileStore{
		dir:    params.Config.ScanConfig.OutputDir,
		visDir: params.Config.ScanConfig.VisDir,
		logger: params.Logger.With(zap.String(logg.Layer, fileStoreName)),
		tracer: otel.Tracer(reportTracer),
	}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) JSONPath(stem string) string {
	return filepath.Join(s.dir, stem+JSONExt)
}

func (s *FileStore) PNGPath(stem string) string {
	return filepath.Join(s.dir, stem+PNGExt)
}

// Prepare creates the output directory if it does not exist yet.
func (s *FileStore) Prepare(ctx context.Context) error {
	const op = "Prepare"

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return s.writeErr(op, "mkdir_failed", s.dir, err)
	}

	return nil
}

// Write stages both files next to their targets and renames them into place
// only once both are on disk, so a failed write leaves no partial report.
func (s *FileStore) Write(ctx context.Context, stem string, elements []entity.ElementDescriptor, screenshot []byte) (err error) {
	const op = "Write"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Stem, stem))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("stem", stem),
		attribute.Int("elements", len(elements)))
	defer func() {
		step.End(err)
	}()

	if stem == "" {
		return apperr.InvalidReqError(op, "stem", fmt.Errorf("stem must not be empty"))
	}

	if len(screenshot) == 0 {
		return apperr.Wrap(op, apperr.CodeReportWriteFailed, fmt.Errorf("empty screenshot"), map[string]any{
			apperr.MetaReason: "empty_screenshot",
			apperr.MetaStage:  apperr.StageReporting,
		})
	}

	if err = os.MkdirAll(s.dir, dirPerm); err != nil {
		return s.writeErr(op, "mkdir_failed", s.dir, err)
	}

	payload, err := EncodeElements(elements)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeReportWriteFailed, err, map[string]any{
			apperr.MetaReason: "encode_failed",
			apperr.MetaStage:  apperr.StageReporting,
		})
	}

	jsonTmp, err := s.stage(stem+JSONExt, payload)
	if err != nil {
		return s.writeErr(op, "stage_json_failed", s.JSONPath(stem), err)
	}
	defer os.Remove(jsonTmp)

	pngTmp, err := s.stage(stem+PNGExt, screenshot)
	if err != nil {
		return s.writeErr(op, "stage_png_failed", s.PNGPath(stem), err)
	}
	defer os.Remove(pngTmp)

	pngPath := s.PNGPath(stem)

	backup, err := s.backup(pngPath)
	if err != nil {
		return s.writeErr(op, "backup_png_failed", pngPath, err)
	}

	if err = os.Rename(pngTmp, pngPath); err != nil {
		s.restore(logger, backup, pngPath)

		return s.writeErr(op, "rename_png_failed", pngPath, err)
	}

	if err = os.Rename(jsonTmp, s.JSONPath(stem)); err != nil {
		s.restore(logger, backup, pngPath)

		return s.writeErr(op, "rename_json_failed", s.JSONPath(stem), err)
	}

	if backup != "" {
		_ = os.Remove(backup)
	}

	logger.Debug("Report written", zap.Int(logg.Elements, len(elements)))

	return nil
}

func (s *FileStore) stage(name string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())

		return "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return "", err
	}

	if err := os.Chmod(f.Name(), filePerm); err != nil {
		os.Remove(f.Name())

		return "", err
	}

	return f.Name(), nil
}

// backup moves an existing screenshot aside so a failed write can put it
// back. It returns "" when there is nothing to keep.
func (s *FileStore) backup(path string) (string, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return "", nil
	}

	f, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.bak")
	if err != nil {
		return "", err
	}

	name := f.Name()
	f.Close()

	if err := os.Rename(path, name); err != nil {
		os.Remove(name)

		return "", err
	}

	return name, nil
}

// restore removes whatever is at path and moves backup, if any, back in.
func (s *FileStore) restore(logger *zap.Logger, backup, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove screenshot of failed write", zap.String(logg.Path, path), zap.Error(err))
	}

	if backup == "" {
		return
	}

	if err := os.Rename(backup, path); err != nil {
		logger.Warn("Failed to restore previous screenshot", zap.String(logg.Path, path), zap.Error(err))
	}
}

func (s *FileStore) writeErr(op, reason, path string, err error) error {
	return apperr.Wrap(op, apperr.CodeReportWriteFailed, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageReporting,
		apperr.MetaPath:   path,
	})
}

// Reset deletes and recreates the output and visualisation directories.
func (s *FileStore) Reset(ctx context.Context) (err error) {
	const op = "Reset"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	for _, dir := range []string{s.dir, s.visDir} {
		if dir == "" {
			continue
		}

		if err = os.RemoveAll(dir); err != nil {
			return s.writeErr(op, "remove_dir_failed", dir, err)
		}

		if err = os.MkdirAll(dir, dirPerm); err != nil {
			return s.writeErr(op, "mkdir_failed", dir, err)
		}

		logger.Info("Directory reset", zap.String(logg.Path, dir))
	}

	return nil
}

// EncodeElements renders the report as a 4-space indented JSON array.
func EncodeElements(elements []entity.ElementDescriptor) ([]byte, error) {
	if elements == nil {
		elements = []entity.ElementDescriptor{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(elements); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadElements loads a report written by Write.
func ReadElements(path string) ([]entity.ElementDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var elements []entity.ElementDescriptor
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return elements, nil
}
