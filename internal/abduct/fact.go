package abduct

import "github.com/mkealey/salience/internal/event"

// Fact is the attribute set established by an earlier event's winning
// hypothesis. Ord is the fact's stable position in the shared context;
// reference costs are derived from Ord so that appending new facts never
// changes the cost of referencing old ones. That stability is what makes
// Cg monotone under context growth.
type Fact struct {
	EventID   int
	Timestamp int64
	Ord       int
	Attrs     []event.Attribute
}

// Attr returns the fact's value for a key.
func (f Fact) Attr(key string) (event.Value, bool) {
	for _, a := range f.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return event.Value{}, false
}

// FactSet is an immutable snapshot of established facts. Searches in
// flight read a snapshot; writers obtain a new set via Append, so wave
// workers never observe a mutation.
type FactSet struct {
	facts []Fact
}

// NewFactSet returns an empty fact set.
func NewFactSet() *FactSet {
	return &FactSet{}
}

// Append returns a new set extended with the fact. The receiver is left
// untouched.
func (s *FactSet) Append(eventID int, timestamp int64, attrs []event.Attribute) *FactSet {
	facts := make([]Fact, len(s.facts), len(s.facts)+1)
	copy(facts, s.facts)
	facts = append(facts, Fact{
		EventID:   eventID,
		Timestamp: timestamp,
		Ord:       len(facts),
		Attrs:     attrs,
	})
	return &FactSet{facts: facts}
}

// Len returns the number of established facts.
func (s *FactSet) Len() int {
	return len(s.facts)
}

// At returns the i-th fact in establishment order.
func (s *FactSet) At(i int) Fact {
	return s.facts[i]
}
