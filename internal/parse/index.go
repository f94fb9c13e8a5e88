package parse

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bottle-tracking-backend/internal/errs"
)

// BottleIndex parses a bottle index from a path parameter or query value.
func BottleIndex(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: bottle index is required", errs.ErrValidation)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bottle index %q is not an integer", errs.ErrValidation, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: bottle index %d is negative", errs.ErrValidation, n)
	}
	return n, nil
}

// JSONBottleIndex parses a bottle index from a raw JSON value. It accepts
// numbers with an integral value, including decimal (2.0) and exponent (1e3)
// forms, and strings holding a base-10 integer. Values outside int64 are rejected.
func JSONBottleIndex(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: bottle index is required", errs.ErrValidation)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return BottleIndex(s)
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("%w: bottle index %s is not a number", errs.ErrValidation, raw)
	}
	if n, err := num.Int64(); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: bottle index %d is negative", errs.ErrValidation, n)
		}
		return n, nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: bottle index %s is not a non-negative integer", errs.ErrValidation, raw)
	}
	return int64(f), nil
}
