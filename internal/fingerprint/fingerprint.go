// Package fingerprint computes content digests used to decide whether a
// record needs re-indexing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Aman-CERP/amanvoice/internal/record"
)

// fieldSeparator keeps "ab"+"c" and "a"+"bc" from colliding; tagSeparator
// does the same for ["a,b"] and ["a", "b"].
const (
	fieldSeparator = "\x1f"
	tagSeparator   = "\x1e"
)

// Compute returns the hex SHA-256 of the record's searchable fields: title,
// summary, context, tags (sorted) and text. Timestamp, duration,
// size and path are excluded. A nil record hashes as all-empty fields.
func Compute(r *record.Record) string {
	var title, summary, context, text string
	var tags []string
	if r != nil {
		title, summary, context, text = r.Title, r.Summary, r.Context, r.Text
		tags = append(tags, r.Tags...)
	}
	sort.Strings(tags)

	h := sha256.New()
	for i, part := range []string{title, summary, context, strings.Join(tags, tagSeparator), text} {
		if i > 0 {
			h.Write([]byte(fieldSeparator))
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasChanged reports whether r's content differs from the stored fingerprint.
// An empty stored fingerprint means the record was never indexed.
func HasChanged(r *record.Record, stored string) bool {
	if stored == "" {
		return true
	}
	return Compute(r) != stored
}
