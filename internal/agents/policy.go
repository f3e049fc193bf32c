package agents

import (
	"fmt"

	"github.com/supplymap/supplyq"
)

// TerminalDiscoveryPolicy flags a discovery run that left low-confidence terminals.
func TerminalDiscoveryPolicy(r supplyq.Result) (bool, string) {
	n, ok := number(r["terminals_requiring_review"])
	if !ok || n <= 0 {
		return false, ""
	}
	return true, fmt.Sprintf("%v low-confidence terminals", n)
}

// TariffPolicy flags results whose tariffs list has a rate_per_gallon above threshold.
func TariffPolicy(threshold float64) supplyq.ReviewPolicy {
	return func(r supplyq.Result) (bool, string) {
		high := 0
		for _, row := range rows(r["tariffs"]) {
			if rate, ok := number(row["rate_per_gallon"]); ok && rate > threshold {
				high++
			}
		}
		if high == 0 {
			return false, ""
		}
		return true, fmt.Sprintf("%d tariffs above $%.2f/gal", high, threshold)
	}
}

func rows(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}
