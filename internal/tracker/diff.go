package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// issueDiff records the changed fields of an issue as "field: old -> new"
// pairs, one line per field. Each entity gets its own typed diff function;
// there is no generic reflective field walker.
func issueDiff(before, after *Issue) string {
	type pair struct{ field, old, new string }
	var changed []pair

	if before.TypeID != after.TypeID {
		changed = append(changed, pair{"type_id", before.TypeID, after.TypeID})
	}
	if before.Status != after.Status {
		changed = append(changed, pair{"status", before.Status, after.Status})
	}
	if before.ShortDescription != after.ShortDescription {
		changed = append(changed, pair{"short_description", before.ShortDescription, after.ShortDescription})
	}
	if before.FullDescription != after.FullDescription {
		changed = append(changed, pair{"full_description", before.FullDescription, after.FullDescription})
	}
	if len(changed) == 0 {
		return ""
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].field < changed[j].field })

	lines := make([]string, 0, len(changed))
	for _, c := range changed {
		lines = append(lines, fmt.Sprintf("%s: %q -> %q", c.field, c.old, c.new))
	}
	return strings.Join(lines, "\n")
}
