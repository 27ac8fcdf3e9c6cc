package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/taskdeck/taskdeck/internal/types"
)

// diffVersions compares two snapshot payloads field by field, in sorted
// field order.
func diffVersions(v1, v2 *types.TaskVersion) ([]types.FieldDiff, error) {
	var a, b map[string]any
	if err := json.Unmarshal(v1.Payload, &a); err != nil {
		return nil, fmt.Errorf("failed to decode version %d payload: %w", v1.Version, err)
	}
	if err := json.Unmarshal(v2.Payload, &b); err != nil {
		return nil, fmt.Errorf("failed to decode version %d payload: %w", v2.Version, err)
	}

	fields := make([]string, 0, len(a))
	seen := make(map[string]bool, len(a))
	for k := range a {
		fields = append(fields, k)
		seen[k] = true
	}
	for k := range b {
		if !seen[k] {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	var diffs []types.FieldDiff
	for _, field := range fields {
		av, bv := a[field], b[field]
		if !jsonEqual(av, bv) {
			diffs = append(diffs, types.FieldDiff{Field: field, V1Value: av, V2Value: bv})
		}
	}
	return diffs, nil
}

func jsonEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
