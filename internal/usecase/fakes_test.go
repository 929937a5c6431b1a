package usecase

import (
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
)

const failIsVisible = "isVisible"

var errDetached = errors.New("element is not attached to the DOM")

type fakeElement struct {
	visible       bool
	enabled       bool
	pointerEvents bool
	unobstructed  bool
	cursor        bool
	box           *entity.BoundingBox
	attrs         map[string]interface{}
	failOn        string
	disposed      bool
}

// clickableButton is visible, enabled, unobstructed and styled cursor: pointer.
func clickableButton() *fakeElement {
	return &fakeElement{
		visible:       true,
		enabled:       true,
		pointerEvents: true,
		unobstructed:  true,
		cursor:        true,
		box:           &entity.BoundingBox{X: 10, Y: 20, Width: 100, Height: 30},
		attrs: map[string]interface{}{
			"id":             "buy",
			"class":          "btn primary",
			"type":           "submit",
			"innerText":      "Buy now",
			"tag":            "button",
			"href":           nil,
			"dataAttributes": map[string]interface{}{"data-sku": "42"},
		},
	}
}

func (e *fakeElement) IsVisible() (bool, error) {
	if e.failOn == failIsVisible {
		return false, errDetached
	}

	return e.visible, nil
}

func (e *fakeElement) IsEnabled() (bool, error) {
	return e.enabled, nil
}

func (e *fakeElement) Evaluate(script string) (interface{}, error) {
	if e.failOn == script {
		return nil, errDetached
	}

	switch script {
	case pointerEventsScript:
		return e.pointerEvents, nil
	case hitTestScript:
		return e.unobstructed, nil
	case cursorAffordanceScript:
		return e.cursor, nil
	case attributesScript:
		return e.attrs, nil
	}

	return nil, fmt.Errorf("unexpected script %q", script)
}

func (e *fakeElement) BoundingBox() (*entity.BoundingBox, error) {
	return e.box, nil
}

func (e *fakeElement) Dispose() error {
	e.disposed = true

	return nil
}

type fakeBrowser struct {
	mu          sync.Mutex
	navErrs     map[string][]error
	navigations []string
	elements    []*fakeElement
	queryErrs   []error
	shot        []byte
	shotErrs    []error
}

func newFakeBrowser(elements ...*fakeElement) *fakeBrowser {
	return &fakeBrowser{
		navErrs:  make(map[string][]error),
		elements: elements,
		shot:     []byte("\x89PNG fake screenshot"),
	}
}

func (b *fakeBrowser) Launch(ctx context.Context) error { return nil }
func (b *fakeBrowser) Close(ctx context.Context) error  { return nil }
func (b *fakeBrowser) Engine() string                   { return "fake" }
func (b *fakeBrowser) IsReady() bool                    { return true }

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.navigations = append(b.navigations, url)

	if errs := b.navErrs[url]; len(errs) > 0 {
		b.navErrs[url] = errs[1:]

		return errs[0]
	}

	return nil
}

func (b *fakeBrowser) QueryAllElements(ctx context.Context) ([]ports.Element, error) {
	if len(b.queryErrs) > 0 {
		err := b.queryErrs[0]
		b.queryErrs = b.queryErrs[1:]

		return nil, err
	}

	out := make([]ports.Element, 0, len(b.elements))
	for _, el := range b.elements {
		out = append(out, el)
	}

	return out, nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	if len(b.shotErrs) > 0 {
		err := b.shotErrs[0]
		b.shotErrs = b.shotErrs[1:]

		return nil, err
	}

	return b.shot, nil
}

type storedReport struct {
	stem       string
	elements   []entity.ElementDescriptor
	screenshot []byte
}

type fakeStore struct {
	writes    []storedReport
	writeErrs []error
	prepared  bool
	resets    int
}

func (s *fakeStore) Prepare(ctx context.Context) error {
	s.prepared = true

	return nil
}

func (s *fakeStore) Write(ctx context.Context, stem string, elements []entity.ElementDescriptor, screenshot []byte) error {
	if len(s.writeErrs) > 0 {
		err := s.writeErrs[0]
		s.writeErrs = s.writeErrs[1:]

		return err
	}

	s.writes = append(s.writes, storedReport{stem: stem, elements: elements, screenshot: screenshot})

	return nil
}

func (s *fakeStore) Reset(ctx context.Context) error {
	s.resets++

	return nil
}

type fakeAnnotator struct {
	stems []string
	err   error
}

func (a *fakeAnnotator) Annotate(ctx context.Context, stem string) (string, error) {
	if a.err != nil {
		return "", a.err
	}

	a.stems = append(a.stems, stem)

	return "vis/" + stem + ".png", nil
}

func (a *fakeAnnotator) AnnotateAll(ctx context.Context) ([]string, error) {
	return []string{"vis/all.png"}, a.err
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig:     &config.AppConfig{},
		BrowserConfig: &config.BrowserConfig{Engine: config.EnginePlaywright},
		ScanConfig: &config.ScanConfig{
			URLFile:     "test_urls.txt",
			OutputDir:   "./data",
			VisDir:      "./vis",
			MaxAttempts: 3,
			CursorCheck: true,
		},
	}
}

type recordingObserver struct {
	total    int
	outcomes []entity.Outcome
}

func (o *recordingObserver) BatchStarted(total int) {
	o.total = total
}

func (o *recordingObserver) URLFinished(outcome entity.Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}
