package usecase

import (
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/internal/ports"
	"clickmap/pkg/apperr"
	"fmt"

	"go.uber.org/zap"
)

// Classifier decides whether a user could meaningfully click an element.
// It owns no state besides its settings.
type Classifier struct {
	cursorCheck bool
}

func NewClassifier(conf *config.Config) *Classifier {
	return &Classifier{
		cursorCheck: conf.ScanConfig.CursorCheck,
	}
}

// Evaluate runs every sub-check in order. Any check error aborts the
// evaluation with a classification error; callers treat that element as
// not clickable.
func (c *Classifier) Evaluate(el ports.Element) (entity.Verdict, error) {
	const op = "Classify"

	var (
		v   entity.Verdict
		err error
	)

	if v.Visible, err = el.IsVisible(); err != nil {
		return v, classifyErr(op, "visibility_check_failed", err)
	}

	if v.Enabled, err = el.IsEnabled(); err != nil {
		return v, classifyErr(op, "enabled_check_failed", err)
	}

	if v.PointerEvents, err = evalBool(el, pointerEventsScript); err != nil {
		return v, classifyErr(op, "pointer_events_check_failed", err)
	}

	if v.Unobstructed, err = evalBool(el, hitTestScript); err != nil {
		return v, classifyErr(op, "hit_test_failed", err)
	}

	if !c.cursorCheck {
		v.CursorAffordance = true

		return v, nil
	}

	if v.CursorAffordance, err = evalBool(el, cursorAffordanceScript); err != nil {
		return v, classifyErr(op, "cursor_check_failed", err)
	}

	return v, nil
}

// IsClickable collapses Evaluate into the boolean predicate.
func (c *Classifier) IsClickable(el ports.Element) (bool, error) {
	v, err := c.Evaluate(el)
	if err != nil {
		return false, err
	}

	return v.Clickable(), nil
}

// Describe classifies el and, when it is clickable and rendered, returns its
// report row. A nil descriptor with a nil error means the element is skipped;
// the verdict tells why.
func (c *Classifier) Describe(el ports.Element) (*entity.ElementDescriptor, entity.Verdict, error) {
	const op = "Describe"

	verdict, err := c.Evaluate(el)
	if err != nil || !verdict.Clickable() {
		return nil, verdict, err
	}

	box, err := el.BoundingBox()
	if err != nil {
		return nil, verdict, classifyErr(op, "bounding_box_failed", err)
	}

	if box == nil {
		return nil, verdict, nil
	}

	attrs, err := el.Evaluate(attributesScript)
	if err != nil {
		return nil, verdict, classifyErr(op, "attributes_failed", err)
	}

	desc, err := describe(box, attrs)
	if err != nil {
		return nil, verdict, classifyErr(op, "attributes_decode_failed", err)
	}

	return &desc, verdict, nil
}

func evalBool(el ports.Element, script string) (bool, error) {
	res, err := el.Evaluate(script)
	if err != nil {
		return false, err
	}

	b, ok := res.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected result type %T", res)
	}

	return b, nil
}

func classifyErr(op, reason string, err error) error {
	return apperr.Wrap(op, apperr.CodeClassificationFailed, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageClassify,
	})
}

func verdictFields(v entity.Verdict) []zap.Field {
	return []zap.Field{
		zap.Bool("visible", v.Visible),
		zap.Bool("enabled", v.Enabled),
		zap.Bool("pointer_events", v.PointerEvents),
		zap.Bool("unobstructed", v.Unobstructed),
		zap.Bool("cursor_affordance", v.CursorAffordance),
	}
}
