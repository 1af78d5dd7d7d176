package index

import (
	"sort"

	"github.com/Aman-CERP/amanvoice/internal/fingerprint"
	"github.com/Aman-CERP/amanvoice/internal/record"
)

// Plan is the outcome of comparing current records against the manifest.
type Plan struct {
	New       []*record.Record
	Modified  []*record.Record
	Unchanged []*record.Record
	Deleted   []string // sorted
}

// ToIndex returns new then modified records.
func (p *Plan) ToIndex() []*record.Record {
	out := make([]*record.Record, 0, len(p.New)+len(p.Modified))
	out = append(out, p.New...)
	return append(out, p.Modified...)
}

// Classify sorts records into new, modified and unchanged using the stored
// fingerprints, and reports every indexed id without a current record as
// deleted. A record with chunks but no manifest entry counts as new.
// Records without an id are ignored; for duplicate ids the first wins.
func Classify(records []*record.Record, stored map[string]string, indexedIDs []string) *Plan {
	plan := &Plan{}
	current := make(map[string]struct{}, len(records))

	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		if _, dup := current[r.ID]; dup {
			continue
		}
		current[r.ID] = struct{}{}

		fp, ok := stored[r.ID]
		switch {
		case !ok:
			plan.New = append(plan.New, r)
		case fingerprint.HasChanged(r, fp):
			plan.Modified = append(plan.Modified, r)
		default:
			plan.Unchanged = append(plan.Unchanged, r)
		}
	}

	seen := make(map[string]struct{}, len(indexedIDs))
	for _, id := range indexedIDs {
		if _, ok := current[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		plan.Deleted = append(plan.Deleted, id)
	}
	sort.Strings(plan.Deleted)

	return plan
}
