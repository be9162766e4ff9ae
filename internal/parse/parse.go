package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"staffplan-backend/internal/model"
)

var separatorRe = regexp.MustCompile(`[\s_]+`)

// ParseRole normalises a raw role string. Matching is case-insensitive.
func ParseRole(raw string) (model.Role, error) {
	r := model.Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", raw)
	}
	return r, nil
}

// ParseStatus normalises a raw status string. "Always needed", "always_needed"
// and "ALWAYS-NEEDED" all map to the same value.
func ParseStatus(raw string) (model.Status, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = separatorRe.ReplaceAllString(s, "-")
	status := model.Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status: %q", raw)
	}
	return status, nil
}

// maxCount bounds a single role count. Larger values are treated as garbage.
const maxCount = math.MaxInt32

// ParseRequirements converts a decoded JSON role -> count mapping into typed
// requirements. Unknown roles, non-numeric counts, counts below one and counts
// above maxCount are dropped rather than rejected.
func ParseRequirements(raw map[string]any) map[model.Role]int {
	out := make(map[model.Role]int, len(raw))
	for key, value := range raw {
		role, err := ParseRole(key)
		if err != nil {
			continue
		}
		n, ok := toCount(value)
		if !ok || n <= 0 {
			continue
		}
		out[role] += n
	}
	return out
}

func toCount(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return boundedCount(int64(n))
	case int32:
		return boundedCount(int64(n))
	case int64:
		return boundedCount(n)
	case float32:
		return floatCount(float64(n))
	case float64:
		return floatCount(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return boundedCount(i)
	default:
		return 0, false
	}
}

func floatCount(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > maxCount {
		return 0, false
	}
	return boundedCount(int64(f))
}

func boundedCount(n int64) (int, bool) {
	if n > maxCount {
		return 0, false
	}
	return int(n), true
}
