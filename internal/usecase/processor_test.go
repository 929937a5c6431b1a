package usecase

import (
	"clickmap/internal/entity"
	"clickmap/internal/report"
	"clickmap/pkg/apperr"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var errTimeout = apperr.Wrap("Navigate", apperr.CodeNavigationFailed, errors.New("timeout 30000ms exceeded"), nil)

func newTestProcessor(t *testing.T, logger *zap.Logger, b *fakeBrowser, s *fakeStore) *PageProcessor {
	t.Helper()

	conf := testConfig()

	return NewPageProcessor(PageProcessorParams{
		Config:     conf,
		Logger:     logger,
		Browser:    b,
		Store:      s,
		Annotator:  &fakeAnnotator{},
		Classifier: NewClassifier(conf),
	})
}

func TestNextState(t *testing.T) {
	cancelled := cancelledErr("navigate", context.Canceled)

	tests := []struct {
		name    string
		from    entity.ProcessState
		err     error
		attempt int
		want    entity.ProcessState
	}{
		{name: "pending starts navigation", from: entity.StatePending, want: entity.StateNavigating},
		{name: "bad url abandons", from: entity.StatePending, err: errTimeout, want: entity.StateAbandoned},
		{name: "navigated", from: entity.StateNavigating, attempt: 1, want: entity.StateScanning},
		{name: "scanned", from: entity.StateScanning, attempt: 1, want: entity.StateReporting},
		{name: "reported", from: entity.StateReporting, attempt: 1, want: entity.StateDone},
		{name: "navigation error", from: entity.StateNavigating, err: errTimeout, attempt: 1, want: entity.StateFailed},
		{name: "scan error", from: entity.StateScanning, err: errTimeout, attempt: 2, want: entity.StateFailed},
		{name: "report error", from: entity.StateReporting, err: errTimeout, attempt: 2, want: entity.StateFailed},
		{name: "retry", from: entity.StateFailed, attempt: 1, want: entity.StateNavigating},
		{name: "last retry", from: entity.StateFailed, attempt: 2, want: entity.StateNavigating},
		{name: "ceiling reached", from: entity.StateFailed, attempt: 3, want: entity.StateAbandoned},
		{name: "cancelled", from: entity.StateScanning, err: cancelled, attempt: 1, want: entity.StateAbandoned},
		{name: "done is terminal", from: entity.StateDone, want: entity.StateDone},
		{name: "abandoned is terminal", from: entity.StateAbandoned, want: entity.StateAbandoned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextState(tt.from, tt.err, tt.attempt, 3); got != tt.want {
				t.Errorf("nextState(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestProcessSucceeds(t *testing.T) {
	button := clickableButton()
	hidden := clickableButton()
	hidden.visible = false

	b := newFakeBrowser(button, hidden)
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(context.Background(), "https://www.example.com/shop")

	if outcome.State != entity.StateDone {
		t.Fatalf("state = %s, want done (err %v)", outcome.State, outcome.Err)
	}

	if outcome.Attempts != 1 || outcome.Elements != 1 || outcome.Stem != "example.com" {
		t.Errorf("outcome = %+v", outcome)
	}

	if len(s.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(s.writes))
	}

	got := s.writes[0]
	if got.stem != "example.com" || len(got.elements) != 1 {
		t.Fatalf("write = %+v", got)
	}

	el := got.elements[0]
	if el.Tag == nil || *el.Tag != "button" {
		t.Errorf("tag = %v, want button", el.Tag)
	}

	if el.Href != nil {
		t.Errorf("href = %q, want nil", *el.Href)
	}

	if el.X != 10 || el.Y != 20 || el.Width != 100 || el.Height != 30 {
		t.Errorf("geometry = %+v", el)
	}

	if el.DataAttributes["data-sku"] != "42" {
		t.Errorf("dataAttributes = %v", el.DataAttributes)
	}

	if !button.disposed || !hidden.disposed {
		t.Error("element handles should be released after the scan")
	}
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	const target = "https://example.com"

	core, logs := observer.New(zapcore.WarnLevel)

	b := newFakeBrowser(clickableButton())
	b.navErrs[target] = []error{errTimeout, errTimeout}
	s := &fakeStore{}

	outcome := newTestProcessor(t, zap.New(core), b, s).Process(context.Background(), target)

	if outcome.State != entity.StateDone {
		t.Fatalf("state = %s, want done", outcome.State)
	}

	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}

	if len(b.navigations) != 3 {
		t.Errorf("navigations = %d, want 3", len(b.navigations))
	}

	if len(s.writes) != 1 {
		t.Errorf("writes = %d, want 1", len(s.writes))
	}

	if n := logs.FilterMessage("Attempt failed").Len(); n != 2 {
		t.Errorf("attempt failures logged = %d, want 2", n)
	}
}

func TestProcessAbandonsAfterMaxAttempts(t *testing.T) {
	const target = "https://broken.test"

	core, logs := observer.New(zapcore.WarnLevel)

	b := newFakeBrowser(clickableButton())
	b.navErrs[target] = []error{errTimeout, errTimeout, errTimeout}
	s := &fakeStore{}

	outcome := newTestProcessor(t, zap.New(core), b, s).Process(context.Background(), target)

	if outcome.State != entity.StateAbandoned {
		t.Fatalf("state = %s, want abandoned", outcome.State)
	}

	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}

	if !apperr.HasCode(outcome.Err, apperr.CodeNavigationFailed) {
		t.Errorf("err = %v, want navigation_failed", outcome.Err)
	}

	if len(s.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(s.writes))
	}

	if n := logs.FilterMessage("Attempt failed").Len(); n != 3 {
		t.Errorf("attempt failures logged = %d, want 3", n)
	}

	if n := logs.FilterMessage("Abandoning URL").Len(); n != 1 {
		t.Errorf("abandon logged = %d, want 1", n)
	}
}

func TestProcessRetriesFromNavigationAfterLaterFailures(t *testing.T) {
	b := newFakeBrowser(clickableButton())
	b.queryErrs = []error{errors.New("execution context was destroyed")}
	b.shotErrs = []error{errors.New("target closed")}
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(context.Background(), "https://example.com")

	if outcome.State != entity.StateDone {
		t.Fatalf("state = %s, want done", outcome.State)
	}

	if outcome.Attempts != 3 || len(b.navigations) != 3 {
		t.Errorf("attempts = %d, navigations = %d, want 3 each", outcome.Attempts, len(b.navigations))
	}
}

func TestProcessWriteFailureRetries(t *testing.T) {
	b := newFakeBrowser(clickableButton())
	s := &fakeStore{writeErrs: []error{errors.New("disk full")}}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(context.Background(), "https://example.com")

	if outcome.State != entity.StateDone || outcome.Attempts != 2 {
		t.Fatalf("outcome = %+v, want done after 2 attempts", outcome)
	}

	if len(s.writes) != 1 {
		t.Errorf("writes = %d, want 1", len(s.writes))
	}
}

func TestProcessSkipsFailingElements(t *testing.T) {
	detached := clickableButton()
	detached.failOn = hitTestScript

	noBox := clickableButton()
	noBox.box = nil

	badAttrs := clickableButton()
	badAttrs.failOn = attributesScript

	good := clickableButton()

	b := newFakeBrowser(detached, noBox, badAttrs, good)
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(context.Background(), "https://example.com")

	if outcome.State != entity.StateDone || outcome.Attempts != 1 {
		t.Fatalf("outcome = %+v, want done on first attempt", outcome)
	}

	if len(s.writes) != 1 || len(s.writes[0].elements) != 1 {
		t.Fatalf("writes = %+v, want one report with one element", s.writes)
	}
}

func TestProcessEmptyPageWritesEmptyReport(t *testing.T) {
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), newFakeBrowser(), s).Process(context.Background(), "https://example.com")

	if outcome.State != entity.StateDone {
		t.Fatalf("state = %s, want done", outcome.State)
	}

	if len(s.writes) != 1 || s.writes[0].elements == nil || len(s.writes[0].elements) != 0 {
		t.Fatalf("writes = %+v, want one empty report", s.writes)
	}
}

func TestProcessCancelledAbandonsWithoutRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newFakeBrowser(clickableButton())
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(ctx, "https://example.com")

	if outcome.State != entity.StateAbandoned {
		t.Fatalf("state = %s, want abandoned", outcome.State)
	}

	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}

	if !apperr.HasCode(outcome.Err, apperr.CodeCancelled) {
		t.Errorf("err = %v, want cancelled", outcome.Err)
	}

	if len(b.navigations) != 0 || len(s.writes) != 0 {
		t.Error("cancelled URL must not navigate or write")
	}
}

func TestProcessInvalidURLIsAbandoned(t *testing.T) {
	b := newFakeBrowser()
	s := &fakeStore{}

	outcome := newTestProcessor(t, zaptest.NewLogger(t), b, s).Process(context.Background(), "https://")

	if outcome.State != entity.StateAbandoned || outcome.Attempts != 0 {
		t.Fatalf("outcome = %+v, want abandoned before navigation", outcome)
	}

	if !apperr.HasCode(outcome.Err, apperr.CodeInvalidArgument) {
		t.Errorf("err = %v, want invalid_argument", outcome.Err)
	}
}

func TestProcessWritesReportFiles(t *testing.T) {
	dir := t.TempDir()

	conf := testConfig()
	conf.ScanConfig.OutputDir = filepath.Join(dir, "data")
	conf.ScanConfig.VisDir = filepath.Join(dir, "vis")

	logger := zaptest.NewLogger(t)
	store := report.NewFileStore(report.Params{Config: conf, Logger: logger})

	if err := store.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	b := newFakeBrowser(clickableButton())

	p := NewPageProcessor(PageProcessorParams{
		Config:     conf,
		Logger:     logger,
		Browser:    b,
		Store:      store,
		Annotator:  &fakeAnnotator{},
		Classifier: NewClassifier(conf),
	})

	outcome := p.Process(context.Background(), "https://www.example.com")
	if outcome.State != entity.StateDone {
		t.Fatalf("state = %s, err = %v", outcome.State, outcome.Err)
	}

	elements, err := report.ReadElements(store.JSONPath("example.com"))
	if err != nil {
		t.Fatalf("ReadElements: %v", err)
	}

	if len(elements) != 1 || elements[0].Tag == nil || *elements[0].Tag != "button" {
		t.Fatalf("elements = %+v, want one button", elements)
	}

	info, err := os.Stat(store.PNGPath("example.com"))
	if err != nil {
		t.Fatalf("screenshot missing: %v", err)
	}

	if info.Size() == 0 {
		t.Error("screenshot is empty")
	}
}
