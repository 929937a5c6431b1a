package entity

import (
	"time"

	"github.com/google/uuid"
)

// ElementDescriptor is one report row: geometry in page coordinates plus an
// attribute snapshot. Absent attributes serialize as null.
type ElementDescriptor struct {
	X              float64           `json:"x"`
	Y              float64           `json:"y"`
	Width          float64           `json:"width"`
	Height         float64           `json:"height"`
	ID             *string           `json:"id"`
	Class          *string           `json:"class"`
	Name           *string           `json:"name"`
	Role           *string           `json:"role"`
	Type           *string           `json:"type"`
	AriaLabel      *string           `json:"aria-label"`
	AriaLabelledBy *string           `json:"aria-labelledby"`
	Href           *string           `json:"href"`
	Alt            *string           `json:"alt"`
	Action         *string           `json:"action"`
	DataAttributes map[string]string `json:"dataAttributes"`
	InnerText      *string           `json:"innerText"`
	Tag            *string           `json:"tag"`
}

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Verdict holds the five clickability sub-check results for one element.
type Verdict struct {
	Visible          bool
	Enabled          bool
	PointerEvents    bool
	Unobstructed     bool
	CursorAffordance bool
}

func (v Verdict) Clickable() bool {
	return v.Visible && v.Enabled && v.PointerEvents && v.Unobstructed && v.CursorAffordance
}

// ProcessState is a state of the per-URL processing machine.
type ProcessState string

const (
	StatePending    ProcessState = "pending"
	StateNavigating ProcessState = "navigating"
	StateScanning   ProcessState = "scanning"
	StateReporting  ProcessState = "reporting"
	StateFailed     ProcessState = "failed"
	StateDone       ProcessState = "done"
	StateAbandoned  ProcessState = "abandoned"
)

func (s ProcessState) Terminal() bool {
	return s == StateDone || s == StateAbandoned
}

// Outcome is the terminal result of processing one URL.
type Outcome struct {
	URL      string
	Stem     string
	State    ProcessState
	Attempts int
	Elements int
	Err      error
	Duration time.Duration
}

// BatchResult summarises one scan run.
type BatchResult struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

func (r *BatchResult) Done() int {
	return r.count(StateDone)
}

func (r *BatchResult) Abandoned() int {
	return r.count(StateAbandoned)
}

func (r *BatchResult) count(state ProcessState) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}

	return n
}
