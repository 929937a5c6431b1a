package ports

import (
	"clickmap/internal/entity"
	"context"
)

// BrowserManager owns the single browser session shared by a scan run.
type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	QueryAllElements(ctx context.Context) ([]Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Engine() string
	IsReady() bool
}

// Element is a handle to one DOM element in the current page. Evaluate runs
// script, a JS function taking the element as its only argument, in the page.
type Element interface {
	IsVisible() (bool, error)
	IsEnabled() (bool, error)
	Evaluate(script string) (interface{}, error)
	BoundingBox() (*entity.BoundingBox, error)
	Dispose() error
}

type ReportStore interface {
	Prepare(ctx context.Context) error
	Write(ctx context.Context, stem string, elements []entity.ElementDescriptor, screenshot []byte) error
	Reset(ctx context.Context) error
}

type Annotator interface {
	Annotate(ctx context.Context, stem string) (string, error)
	AnnotateAll(ctx context.Context) ([]string, error)
}

// ScanObserver is notified as a batch progresses.
type ScanObserver interface {
	BatchStarted(total int)
	URLFinished(outcome entity.Outcome)
}
