package usecase

import (
	"clickmap/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateScanService() adapters.ScanService {
	processor := NewPageProcessor(PageProcessorParams{
		Config:     f.deps.Config,
		Logger:     f.deps.Logger,
		Browser:    f.deps.Browser,
		Store:      f.deps.Store,
		Annotator:  f.deps.Annotator,
		Classifier: NewClassifier(f.deps.Config),
	})

	source := NewURLSource(URLSourceParams{
		Config: f.deps.Config,
		Logger: f.deps.Logger,
	})

	return NewScanService(ScanServiceParams{
		Logger:    f.deps.Logger,
		Source:    source,
		Processor: processor,
		Store:     f.deps.Store,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}

func (f *serviceFactory) CreateMaintenanceService() adapters.MaintenanceService {
	return NewMaintenanceService(MaintenanceServiceParams{
		Logger:    f.deps.Logger,
		Store:     f.deps.Store,
		Annotator: f.deps.Annotator,
	})
}
