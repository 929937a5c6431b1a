package usecase

import (
	"clickmap/internal/ports"
	"clickmap/pkg/logg"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maintenanceServiceName = "MaintenanceService"

// MaintenanceService covers the offline chores around a scan: wiping the
// output directories and rendering annotated screenshots.
type MaintenanceService struct {
	store     ports.ReportStore
	annotator ports.Annotator
	logger    *zap.Logger
}

type MaintenanceServiceParams struct {
	fx.In

	Logger    *zap.Logger
	Store     ports.ReportStore
	Annotator ports.Annotator
}

func NewMaintenanceService(params MaintenanceServiceParams) *MaintenanceService {
	return &MaintenanceService{
		store:     params.Store,
		annotator: params.Annotator,
		logger:    params.Logger.With(zap.String(logg.Layer, maintenanceServiceName)),
	}
}

func (s *MaintenanceService) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

// Annotate renders the given stems, or every report when stems is empty.
func (s *MaintenanceService) Annotate(ctx context.Context, stems []string) ([]string, error) {
	if len(stems) == 0 {
		return s.annotator.AnnotateAll(ctx)
	}

	paths := make([]string, 0, len(stems))

	for _, stem := range stems {
		path, err := s.annotator.Annotate(ctx, stem)
		if err != nil {
			s.logger.Error("Annotation failed", zap.String(logg.Stem, stem), zap.Error(err))

			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
