package usecase

import (
	"clickmap/internal/entity"
	"fmt"
)

// describe builds a report row from a bounding box and the attribute
// snapshot returned by attributesScript.
func describe(box *entity.BoundingBox, raw interface{}) (entity.ElementDescriptor, error) {
	attrs, ok := raw.(map[string]interface{})
	if !ok {
		return entity.ElementDescriptor{}, fmt.Errorf("unexpected attribute snapshot type %T", raw)
	}

	return entity.ElementDescriptor{
		X:              box.X,
		Y:              box.Y,
		Width:          box.Width,
		Height:         box.Height,
		ID:             getOptionalString(attrs, "id"),
		Class:          getOptionalString(attrs, "class"),
		Name:           getOptionalString(attrs, "name"),
		Role:           getOptionalString(attrs, "role"),
		Type:           getOptionalString(attrs, "type"),
		AriaLabel:      getOptionalString(attrs, "aria-label"),
		AriaLabelledBy: getOptionalString(attrs, "aria-labelledby"),
		Href:           getOptionalString(attrs, "href"),
		Alt:            getOptionalString(attrs, "alt"),
		Action:         getOptionalString(attrs, "action"),
		DataAttributes: getStringMap(attrs, "dataAttributes"),
		InnerText:      getOptionalString(attrs, "innerText"),
		Tag:            getOptionalString(attrs, "tag"),
	}, nil
}

func getOptionalString(m map[string]interface{}, key string) *string {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return nil
	}

	return &v
}

func getStringMap(m map[string]interface{}, key string) map[string]string {
	out := make(map[string]string)

	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return out
	}

	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}

	return out
}
