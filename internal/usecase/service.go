package usecase

import (
	"clickmap/internal/config"
	"clickmap/internal/ports"
	"clickmap/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Scan        adapters.ScanService
	Browser     adapters.BrowserService
	Maintenance adapters.MaintenanceService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Config    *config.Config
	Browser   ports.BrowserManager
	Store     ports.ReportStore
	Annotator ports.Annotator
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Scan:        factory.CreateScanService(),
		Browser:     factory.CreateBrowserService(),
		Maintenance: factory.CreateMaintenanceService(),
	}
}
