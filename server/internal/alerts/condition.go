package alerts

import (
	"strconv"
	"strings"
	"time"

	"github.com/serialbridge/serialbridge/server/internal/store"
)

// evalCondition evaluates a rule condition string against one source's
// traffic summary at the given time.
//
// Supported expressions (field operator value):
//
//	silence_seconds > 60
//	records_pm < 1
//	records_pm > 600
//	records_total > 10000
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, v store.SourceView, now time.Time) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}

	var val float64
	switch field {
	case "silence_seconds":
		val = now.Sub(v.LastSeen).Seconds()
	case "records_pm":
		val = v.RatePM
	case "records_total":
		val = float64(v.Count)
	default:
		return false, 0
	}
	return compareFloat(val, op, threshold), val
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
