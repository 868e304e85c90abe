package protocol

import (
	"encoding/json"
	"math"
	"strconv"
)

// Field coercion for payloads decoded with UseNumber. Servers are not
// consistent about ids being strings or numbers, so both are accepted.

func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func floatField(obj map[string]interface{}, key string) float64 {
	switch v := obj[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func intField(obj map[string]interface{}, key string) int64 {
	if n, ok := obj[key].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f := floatField(obj, key)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
