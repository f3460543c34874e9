package nodes

// Config accessors tolerant of JSON decoding, where every number arrives
// as float64.

func configString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

func configNumber(cfg map[string]any, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		if f, ok := toNumber(v); ok {
			return f
		}
	}
	return def
}

func configInt(cfg map[string]any, key string, def int) int {
	if v, ok := cfg[key]; ok {
		if f, ok := toNumber(v); ok {
			return int(f)
		}
	}
	return def
}

// toNumber coerces the numeric types that reach ports: Go ints and
// floats, plus float64 from JSON.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

// toSequence coerces a port value to a []any sequence.
func toSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// numericOnly extracts the numeric elements of a sequence.
func numericOnly(seq []any) []float64 {
	var out []float64
	for _, v := range seq {
		if f, ok := toNumber(v); ok {
			out = append(out, f)
		}
	}
	return out
}
