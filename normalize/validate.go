package normalize

import "strings"

// ValidateShape checks that raw has a shape that [Normalize] could accept
// for t, without normalizing it. It is the cheaper pre-check used when
// restoring persisted items.
func ValidateShape(t Type, raw any) error {
	v, err := generic(raw)
	if err != nil {
		return failf(t, "%v", err)
	}
	if v == nil {
		return failf(t, "data is null")
	}

	switch t {
	case TypeChart:
		switch v.(type) {
		case map[string]any, string:
			return nil
		}
		return failf(t, "chart data must be an object or JSON string, got %s", kindOf(v))
	case TypeImage:
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return nil
		}
		return failf(t, "image data must be a non-empty string")
	case TypeTable:
		switch v.(type) {
		case string, []any, map[string]any:
			return nil
		}
		return failf(t, "table data must be a string, array or object, got %s", kindOf(v))
	case TypeCSV:
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return nil
		}
		return failf(t, "csv data must be a non-empty string")
	case TypeMetric, TypeFile:
		if _, ok := v.(map[string]any); ok {
			return nil
		}
		return failf(t, "%s data must be an object, got %s", t, kindOf(v))
	case TypeInsight:
		switch v.(type) {
		case string, map[string]any:
			return nil
		}
		return failf(t, "insight data must be a string or object, got %s", kindOf(v))
	default:
		return failf(t, "unknown type %q", string(t))
	}
}
