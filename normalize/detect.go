package normalize

import "strings"

// DetectDataType infers the most likely type of raw from its shape.
//
// Strings are sniffed for data URLs and image magic, JSON text and
// comma-separated lines. Objects are matched by characteristic fields.
// Non-empty arrays of rows are tables. Returns false when nothing matches.
func DetectDataType(raw any) (Type, bool) {
	v, err := generic(raw)
	if err != nil {
		return "", false
	}
	return detect(v, true)
}

func detect(v any, parseStrings bool) (Type, bool) {
	switch x := v.(type) {
	case string:
		return detectString(x, parseStrings)
	case map[string]any:
		return detectObject(x)
	case []any:
		if len(x) == 0 {
			return "", false
		}
		switch x[0].(type) {
		case map[string]any, []any:
			return TypeTable, true
		}
	}
	return "", false
}

func detectString(s string, parseJSON bool) (Type, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, dataImagePrefix) {
		return TypeImage, true
	}
	if strings.HasPrefix(s, "data:text/csv") {
		return TypeCSV, true
	}
	if _, ok := sniffImage(s); ok {
		return TypeImage, true
	}

	if parseJSON && (s[0] == '{' || s[0] == '[') {
		if parsed, err := decodeJSON([]byte(s)); err == nil {
			return detect(parsed, false)
		}
	}

	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) >= 2 && strings.Contains(lines[0], ",") && strings.Contains(lines[1], ",") {
		return TypeCSV, true
	}
	return "", false
}

func detectObject(m map[string]any) (Type, bool) {
	if ScoreChartConfig(m).IsChart() {
		return TypeChart, true
	}
	_, hasColumns := m["columns"]
	_, hasRows := m["rows"]
	_, hasHeaders := m["headers"]
	_, hasData := m["data"]
	if (hasColumns && hasRows) || (hasHeaders && hasData) {
		return TypeTable, true
	}
	if IsValidChartConfig(m) {
		return TypeChart, true
	}
	if _, ok := lookup(m, "value"); ok && lookupString(m, "title", "name") != "" {
		return TypeMetric, true
	}
	if lookupString(m, "text") != "" {
		return TypeInsight, true
	}
	if lookupString(m, "fileName", "filePath", "file_name", "file_path") != "" {
		return TypeFile, true
	}
	return "", false
}
