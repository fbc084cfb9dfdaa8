package alert

import (
	"fmt"
	"strconv"
)

// coerceToString converts any extracted value to a string
func coerceToString(value interface{}) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprintf("%v", value)
}

// coerceToNumber converts an extracted value to float64. JSON numbers decode
// as float64, but expected values supplied by operators may arrive as ints
// or numeric strings.
func coerceToNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to number", v)
		}
		return num, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

// areEqual compares two values, preferring numeric comparison and falling
// back to string comparison
func areEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	numA, errA := coerceToNumber(a)
	numB, errB := coerceToNumber(b)
	if errA == nil && errB == nil {
		return numA == numB
	}

	if boolA, ok := a.(bool); ok {
		if boolB, ok := b.(bool); ok {
			return boolA == boolB
		}
	}

	return coerceToString(a) == coerceToString(b)
}

// compareNumbers compares two values as numbers, returning -1, 0 or 1
func compareNumbers(a, b interface{}) (int, error) {
	numA, err := coerceToNumber(a)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: left value - %w", err)
	}
	numB, err := coerceToNumber(b)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: right value - %w", err)
	}

	switch {
	case numA < numB:
		return -1, nil
	case numA > numB:
		return 1, nil
	default:
		return 0, nil
	}
}
