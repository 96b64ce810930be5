package normalize

// Normalize converts raw into the canonical payload for t.
//
// raw may be a json.RawMessage, a decoded JSON value (map[string]any, []any,
// string, float64, bool, nil) or any value that marshals to JSON. The input
// is never modified and the returned payload shares no memory with it.
func Normalize(t Type, raw any) (Payload, error) {
	switch t {
	case TypeChart:
		return wrap(NormalizeChart(raw))
	case TypeImage:
		return wrap(NormalizeImage(raw))
	case TypeTable:
		return wrap(NormalizeTable(raw))
	case TypeCSV:
		return wrap(NormalizeCSV(raw))
	case TypeMetric:
		return wrap(NormalizeMetric(raw))
	case TypeInsight:
		return wrap(NormalizeInsight(raw))
	case TypeFile:
		return wrap(NormalizeFile(raw))
	default:
		return nil, failf(t, "unknown type %q", string(t))
	}
}

// NormalizeTag is [Normalize] for an unparsed wire tag.
func NormalizeTag(tag string, raw any) (Payload, error) {
	t, ok := ParseType(tag)
	if !ok {
		return nil, failf(Type(tag), "unknown type %q", tag)
	}
	return Normalize(t, raw)
}

func wrap(p Payload, err error) (Payload, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
