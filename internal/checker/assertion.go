package checker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Assertion is one declarative condition evaluated against an API response.
// All configured assertions must pass for the check to be operational.
type Assertion struct {
	Type     string `json:"type"`               // status_code, body_contains, body_regex, json_path, header, response_time
	Operator string `json:"operator,omitempty"` // eq, neq, gt, lt, gte, lte, contains, not_contains, matches, not_matches, exists
	Target   string `json:"target,omitempty"`   // header name or JSON path
	Value    string `json:"value,omitempty"`
	// Degraded downgrades a failure of this assertion to degraded instead
	// of down.
	Degraded bool `json:"degraded,omitempty"`
}

// assertionOutcome is the combined verdict over a monitor's assertion list.
type assertionOutcome struct {
	pass     bool
	degraded bool // every failing assertion was marked degraded
	failures []string
}

func evaluateAssertions(assertions []Assertion, statusCode int, body string, header http.Header, elapsed time.Duration) assertionOutcome {
	out := assertionOutcome{pass: true, degraded: true}
	for _, a := range assertions {
		ok, msg := evaluateAssertion(a, statusCode, body, header, elapsed)
		if ok {
			continue
		}
		out.pass = false
		if !a.Degraded {
			out.degraded = false
		}
		out.failures = append(out.failures, msg)
	}
	if out.pass {
		out.degraded = false
	}
	return out
}

func evaluateAssertion(a Assertion, statusCode int, body string, header http.Header, elapsed time.Duration) (bool, string) {
	switch a.Type {
	case "status_code":
		expected, _ := strconv.Atoi(a.Value)
		if compareNumber(float64(statusCode), float64(expected), a.Operator) {
			return true, ""
		}
		return false, fmt.Sprintf("status_code: expected %s %s, got %d", opName(a.Operator), a.Value, statusCode)

	case "body_contains":
		op := "contains"
		matched := strings.Contains(body, a.Value)
		if a.Operator == "not_contains" {
			op = "not_contains"
			matched = !matched
		}
		if matched {
			return true, ""
		}
		return false, fmt.Sprintf("body_contains: %s %q failed", op, truncate(a.Value, 50))

	case "body_regex":
		re, err := regexp.Compile(a.Value)
		if err != nil {
			return false, fmt.Sprintf("body_regex: invalid pattern: %v", err)
		}
		op := "matches"
		matched := re.MatchString(body)
		if a.Operator == "not_matches" {
			op = "not_matches"
			matched = !matched
		}
		if matched {
			return true, ""
		}
		return false, fmt.Sprintf("body_regex: pattern %q %s failed", truncate(a.Value, 50), op)

	case "json_path":
		return evaluateJSONPath(a, body)

	case "header":
		val := header.Get(a.Target)
		if a.Operator == "exists" {
			if val != "" {
				return true, ""
			}
			return false, fmt.Sprintf("header: %s does not exist", a.Target)
		}
		if val == "" {
			return false, fmt.Sprintf("header: %s not found", a.Target)
		}
		if compareString(val, a.Value, a.Operator) {
			return true, ""
		}
		return false, fmt.Sprintf("header %s: expected %s %s, got %s", a.Target, opName(a.Operator), a.Value, truncate(val, 100))

	case "response_time":
		expected, _ := strconv.ParseInt(a.Value, 10, 64)
		actual := elapsed.Milliseconds()
		if compareNumber(float64(actual), float64(expected), a.Operator) {
			return true, ""
		}
		return false, fmt.Sprintf("response_time: expected %s %sms, got %dms", opName(a.Operator), a.Value, actual)

	default:
		return false, fmt.Sprintf("unknown assertion type: %s", a.Type)
	}
}

func evaluateJSONPath(a Assertion, body string) (bool, string) {
	val, err := lookupJSONPath(body, a.Target)
	if err != nil {
		if a.Operator == "exists" {
			return false, fmt.Sprintf("json_path: %s does not exist", a.Target)
		}
		return false, fmt.Sprintf("json_path: %v", err)
	}
	if a.Operator == "exists" {
		return true, ""
	}
	actual := fmt.Sprintf("%v", val)
	if compareString(actual, a.Value, a.Operator) {
		return true, ""
	}
	return false, fmt.Sprintf("json_path %s: expected %s %s, got %s", a.Target, opName(a.Operator), a.Value, truncate(actual, 100))
}

// lookupJSONPath walks a JSON document by dot notation with array indexing,
// e.g. "status", "data.name", "items[0].id".
func lookupJSONPath(jsonStr, path string) (any, error) {
	var current any
	if err := json.Unmarshal([]byte(jsonStr), &current); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}

	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		key, idx, hasIdx := parsePathPart(part)
		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %s", key)
			}
			val, exists := obj[key]
			if !exists {
				return nil, fmt.Errorf("key %s not found", key)
			}
			current = val
		}
		if hasIdx {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array at index %d", idx)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}
	return current, nil
}

// parsePathPart splits "name[0]" into ("name", 0, true); "name" has no index.
func parsePathPart(part string) (string, int, bool) {
	open := strings.Index(part, "[")
	if open == -1 || !strings.HasSuffix(part, "]") {
		return part, 0, false
	}
	idx, err := strconv.Atoi(part[open+1 : len(part)-1])
	if err != nil {
		return part, 0, false
	}
	return part[:open], idx, true
}

func compareNumber(actual, expected float64, op string) bool {
	switch op {
	case "neq":
		return actual != expected
	case "gt":
		return actual > expected
	case "lt":
		return actual < expected
	case "gte":
		return actual >= expected
	case "lte":
		return actual <= expected
	default: // eq
		return actual == expected
	}
}

func compareString(actual, expected, op string) bool {
	switch op {
	case "neq":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	case "not_contains":
		return !strings.Contains(actual, expected)
	case "gt", "lt", "gte", "lte":
		a, _ := strconv.ParseFloat(actual, 64)
		e, _ := strconv.ParseFloat(expected, 64)
		return compareNumber(a, e, op)
	default: // eq
		return actual == expected
	}
}

func opName(op string) string {
	if op == "" {
		return "eq"
	}
	return op
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
