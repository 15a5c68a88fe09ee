// Package hints implements the Hints API (spec.md §6): an ordered list
// of candidate value lists, read from a JSON file, consumed in call
// order by CheckConditionHinted so a concrete candidate can be tried before
// falling back to a solver round-trip.
package hints

import (
	"os"

	"github.com/tidwall/gjson"

	"github.com/cwbudde/go-scfia/internal/diag"
)

// List is a sequence of candidate-value batches. Calling Next drains
// one batch at a time; pkg/scfia's RunToCompletion drains one batch
// per step from a single List and hands it to that step's branch
// resolution.
type List struct {
	batches [][]uint64
	pos     int
}

// Load reads a JSON hints file shaped as a top-level array of arrays
// of unsigned integers, e.g. `[[1, 2], [0], [5, 6, 7]]`. Parsed with
// gjson rather than encoding/json plus a generated struct, since the
// shape is a bare nested array with no named fields to bind to.
func Load(path string) *List {
	data, err := os.ReadFile(path)
	if err != nil {
		diag.Fatalf(diag.KindSnapshot, "cannot read hints file %s: %v", path, err)
	}
	if !gjson.ValidBytes(data) {
		diag.Fatalf(diag.KindSnapshot, "%s is not valid JSON", path)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		diag.Fatalf(diag.KindSnapshot, "%s: top-level hints value must be an array", path)
	}

	var batches [][]uint64
	root.ForEach(func(_, batch gjson.Result) bool {
		if !batch.IsArray() {
			diag.Fatalf(diag.KindSnapshot, "%s: every hints entry must itself be an array of candidates", path)
		}
		var values []uint64
		batch.ForEach(func(_, v gjson.Result) bool {
			values = append(values, v.Uint())
			return true
		})
		batches = append(batches, values)
		return true
	})
	return &List{batches: batches}
}

// Next returns the next candidate batch and advances the cursor, or
// (nil, false) once every batch has been consumed.
func (l *List) Next() ([]uint64, bool) {
	if l == nil || l.pos >= len(l.batches) {
		return nil, false
	}
	batch := l.batches[l.pos]
	l.pos++
	return batch, true
}
