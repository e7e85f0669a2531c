package event

import (
	"sort"
	"strconv"
)

// Value is a typed attribute value. Numeric values keep their float form so
// corpus axes can be ranked; everything else is text.
type Value struct {
	Text    string
	Num     float64
	Numeric bool
}

// Text returns a text value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// NumValue returns a numeric value.
func NumValue(f float64) Value {
	return Value{Num: f, Numeric: true}
}

// Canon returns the canonical string form of the value, used to build
// vocabulary symbols. Numeric values use the shortest round-trip form.
func (v Value) Canon() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Text
}

// Equal reports whether two values are equal in kind and content.
func (v Value) Equal(o Value) bool {
	if v.Numeric != o.Numeric {
		return false
	}
	if v.Numeric {
		return v.Num == o.Num
	}
	return v.Text == o.Text
}

// Attribute is a single typed key/value pair on an event.
type Attribute struct {
	Key   string
	Value Value
}

// Event is a single observed event. Immutable once loaded: the Store hands
// out copies of the attribute slice, never the backing array.
type Event struct {
	ID        int
	Timestamp int64 // unix seconds
	Duration  int64 // seconds; -1 means still going on
	attrs     []Attribute
	truth     bool
}

// New constructs an event with its attributes sorted by key. The sort order
// is what makes encodings and search expansions deterministic.
func New(id int, timestamp, duration int64, attrs []Attribute, truth bool) Event {
	sorted := make([]Attribute, len(attrs))
	copy(sorted, attrs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return Event{ID: id, Timestamp: timestamp, Duration: duration, attrs: sorted, truth: truth}
}

// Attrs returns the event's attributes in key order.
func (e Event) Attrs() []Attribute {
	out := make([]Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Attr returns the value for a key.
func (e Event) Attr(key string) (Value, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the attribute keys in sorted order.
func (e Event) Keys() []string {
	keys := make([]string, len(e.attrs))
	for i, a := range e.attrs {
		keys[i] = a.Key
	}
	return keys
}

// Label returns the event's label attribute, or "" if it has none.
func (e Event) Label() string {
	v, ok := e.Attr("label")
	if !ok {
		return ""
	}
	return v.Canon()
}

// GroundTruth reports whether the event was flagged as a known-notable
// event in the source data.
func (e Event) GroundTruth() bool {
	return e.truth
}
