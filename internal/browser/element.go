package browser

import (
	"clickmap/internal/entity"

	"github.com/playwright-community/playwright-go"
)

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) IsVisible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *playwrightElement) IsEnabled() (bool, error) {
	return e.handle.IsEnabled()
}

func (e *playwrightElement) Evaluate(script string) (interface{}, error) {
	return e.handle.Evaluate(script)
}

func (e *playwrightElement) BoundingBox() (*entity.BoundingBox, error) {
	rect, err := e.handle.BoundingBox()
	if err != nil {
		return nil, err
	}

	if rect == nil {
		return nil, nil
	}

	return &entity.BoundingBox{
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
	}, nil
}

func (e *playwrightElement) Dispose() error {
	return e.handle.Dispose()
}
