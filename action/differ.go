package action

import (
	"strings"

	"auralite/llm"
)

// FieldDiffer turns a stream of structured JSON deltas into the new suffix
// of one string field. The emitted length only grows.
type FieldDiffer struct {
	field   string
	raw     strings.Builder
	emitted string
}

func NewFieldDiffer(field string) *FieldDiffer {
	return &FieldDiffer{field: field}
}

// Feed appends delta to the raw document and returns the part of the field
// not yet emitted.
func (d *FieldDiffer) Feed(delta string) string {
	d.raw.WriteString(delta)
	v, ok := llm.PartialString(d.raw.String(), d.field)
	if !ok || len(v) <= len(d.emitted) || !strings.HasPrefix(v, d.emitted) {
		return ""
	}
	suffix := v[len(d.emitted):]
	d.emitted = v
	return suffix
}

// Value is everything emitted so far.
func (d *FieldDiffer) Value() string { return d.emitted }

// Raw is the accumulated JSON text.
func (d *FieldDiffer) Raw() string { return d.raw.String() }
