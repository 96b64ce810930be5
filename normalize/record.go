package normalize

import "strings"

const defaultInsightIcon = "lightbulb"

// NormalizeMetric requires an object with a title (or name) and a value.
//
// Non-string values are stringified, and a unit, when present, is appended
// to them. String values are kept verbatim.
func NormalizeMetric(raw any) (Metric, error) {
	v, err := generic(raw)
	if err != nil {
		return Metric{}, failf(TypeMetric, "%v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Metric{}, failf(TypeMetric, "metric must be an object, got %s", kindOf(v))
	}

	title := lookupString(m, "title", "name")
	if title == "" {
		return Metric{}, failf(TypeMetric, "metric requires a title or name")
	}
	// a null value counts as present and renders empty
	value, ok := m["value"]
	if !ok {
		return Metric{}, failf(TypeMetric, "metric %q has no value", title)
	}

	out := Metric{
		Title: title,
		Unit:  lookupString(m, "unit"),
	}
	if change, ok := lookup(m, "change"); ok {
		out.Change = stringify(change)
	}
	switch x := value.(type) {
	case nil:
	case string:
		out.Value = x
	default:
		out.Value = stringify(value) + out.Unit
	}
	return out, nil
}

// NormalizeInsight accepts a bare string or an object carrying text.
// The icon defaults to "lightbulb".
func NormalizeInsight(raw any) (Insight, error) {
	v, err := generic(raw)
	if err != nil {
		return Insight{}, failf(TypeInsight, "%v", err)
	}

	switch x := v.(type) {
	case string:
		text := strings.TrimSpace(x)
		if text == "" {
			return Insight{}, failf(TypeInsight, "empty insight text")
		}
		return Insight{Text: text, Icon: defaultInsightIcon}, nil
	case map[string]any:
		text := lookupString(x, "text")
		if text == "" {
			return Insight{}, failf(TypeInsight, "insight requires text")
		}
		icon := lookupString(x, "icon")
		if icon == "" {
			icon = defaultInsightIcon
		}
		return Insight{
			Text:         text,
			Icon:         icon,
			DataSourceID: lookupString(x, "dataSourceId", "data_source_id"),
			SourceName:   lookupString(x, "sourceName", "source_name"),
		}, nil
	default:
		return Insight{}, failf(TypeInsight, "insight must be a string or object, got %s", kindOf(v))
	}
}

// NormalizeFile requires an object describing a generated file.
func NormalizeFile(raw any) (File, error) {
	v, err := generic(raw)
	if err != nil {
		return File{}, failf(TypeFile, "%v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return File{}, failf(TypeFile, "file must be an object, got %s", kindOf(v))
	}

	f := File{
		FileName: lookupString(m, "fileName", "file_name", "name"),
		FilePath: lookupString(m, "filePath", "file_path", "path"),
		FileType: lookupString(m, "fileType", "file_type", "type"),
		Preview:  lookupString(m, "preview"),
	}
	if size, ok := m["size"]; ok {
		f.Size, _ = toInt64(size)
	}
	return f, nil
}
