package listing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// millisThreshold separates raw epoch milliseconds from epoch seconds. Second
// values this large would be more than three thousand years out.
const millisThreshold = 1e11

// Text coerces a raw field value to a string. Missing values become "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Number coerces a raw field value to a float64. Missing and non-numeric
// values, NaN and infinities become 0.
func Number(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case *float64:
		if t == nil {
			return 0
		}
		f = *t
	case *int:
		if t == nil {
			return 0
		}
		f = float64(*t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Timestamp is the wrapped {seconds, nanos} form some stored records use for
// instants.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// EpochSeconds normalizes every supported instant representation to seconds
// since the Unix epoch: time.Time, Timestamp, maps carrying "seconds" (or
// "_seconds"), raw numbers and numeric strings (values above 1e11 are read as
// milliseconds) and RFC3339 strings. Anything else is 0.
func EpochSeconds(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case time.Time:
		return timeSeconds(t)
	case *time.Time:
		if t == nil {
			return 0
		}
		return timeSeconds(*t)
	case Timestamp:
		return float64(t.Seconds) + float64(t.Nanos)/1e9
	case *Timestamp:
		if t == nil {
			return 0
		}
		return float64(t.Seconds) + float64(t.Nanos)/1e9
	case map[string]any:
		sec, ok := t["seconds"]
		if !ok {
			sec, ok = t["_seconds"]
		}
		if !ok {
			return 0
		}
		nanos, ok := t["nanoseconds"]
		if !ok {
			nanos = t["nanos"]
		}
		return Number(sec) + Number(nanos)/1e9
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return timeSeconds(parsed)
		}
		return rawEpoch(Number(s))
	default:
		return rawEpoch(Number(v))
	}
}

func rawEpoch(n float64) float64 {
	if math.Abs(n) >= millisThreshold {
		return n / 1000
	}
	return n
}

func timeSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}
