package alert

import (
	"fmt"
	"regexp"
	"strings"
)

// EvaluateOperator applies a comparison operator to an extracted and an
// expected value
func EvaluateOperator(operator string, extracted, expected interface{}) (bool, error) {
	switch strings.ToLower(operator) {
	case "eq":
		return areEqual(extracted, expected), nil
	case "ne":
		return !areEqual(extracted, expected), nil
	case "gt", "lt", "gte", "lte":
		cmp, err := compareNumbers(extracted, expected)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(operator) {
		case "gt":
			return cmp > 0, nil
		case "lt":
			return cmp < 0, nil
		case "gte":
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	case "contains":
		return evaluateContains(extracted, expected), nil
	case "exists":
		return extracted != nil, nil
	case "regex":
		return evaluateRegex(extracted, expected)
	default:
		return false, fmt.Errorf("unknown operator: %s", operator)
	}
}

// evaluateContains checks membership for arrays and substring match for
// everything else
func evaluateContains(extracted, expected interface{}) bool {
	if arr, ok := extracted.([]interface{}); ok {
		for _, item := range arr {
			if areEqual(item, expected) {
				return true
			}
		}
		return false
	}
	return strings.Contains(coerceToString(extracted), coerceToString(expected))
}

func evaluateRegex(extracted, expected interface{}) (bool, error) {
	pattern := coerceToString(expected)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
	}
	return re.MatchString(coerceToString(extracted)), nil
}
