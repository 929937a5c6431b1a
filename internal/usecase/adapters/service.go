package adapters

import (
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"context"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Engine() string
	IsReady() bool
}

type ScanService interface {
	LoadURLs(ctx context.Context) ([]string, error)
	Run(ctx context.Context, observer ports.ScanObserver) (*entity.BatchResult, error)
}

type MaintenanceService interface {
	Reset(ctx context.Context) error
	Annotate(ctx context.Context, stems []string) ([]string, error)
}
