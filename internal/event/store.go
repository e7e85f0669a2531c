package event

import (
	"fmt"
	"log"
	"sort"
)

// Record is a raw event record as supplied by an external loader, before
// validation. ID of -1 means the source carried no id and the record's
// position in the load is assigned instead.
type Record struct {
	ID        int
	Timestamp int64
	HasTime   bool
	Duration  int64
	Attrs     map[string]Value
	Truth     bool
}

// LoadPolicy controls what happens when a record fails validation.
type LoadPolicy int

const (
	// FailFast aborts the load on the first malformed record. A single bad
	// record corrupts every downstream cost, so this is the default.
	FailFast LoadPolicy = iota
	// SkipInvalid drops malformed records with a logged warning.
	SkipInvalid
)

// InvalidFormatError reports a malformed input record and which field made
// it malformed.
type InvalidFormatError struct {
	Index int    // position of the record in the load
	Field string // the missing or malformed field
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid event record %d: missing %s", e.Index, e.Field)
}

// Store is a validated, immutable snapshot of loaded events, kept in
// chronological order (ties broken by id). It also carries the per-axis
// indexes the search rules consult: sorted distinct numeric values per
// attribute key, and labels ordered by corpus frequency.
type Store struct {
	events []Event
	byID   map[int]int // event id -> index in events

	axes      map[string][]float64 // numeric attribute key -> sorted distinct values
	labels    []string             // distinct labels, most frequent first
	labelRank map[string]int
	lastTime  int64
	firstTime int64
}

// Load validates raw records and builds a Store. Malformed records are
// rejected per the policy; they are never silently dropped.
func Load(records []Record, policy LoadPolicy) (*Store, error) {
	events := make([]Event, 0, len(records))
	seen := make(map[int]bool, len(records))

	for i, r := range records {
		if err := validate(i, r); err != nil {
			if policy == SkipInvalid {
				log.Printf("load: skipping record %d: %v", i, err)
				continue
			}
			return nil, err
		}

		id := r.ID
		if id < 0 {
			id = i
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate event id %d at record %d", id, i)
		}
		seen[id] = true

		dur := r.Duration
		attrs := make([]Attribute, 0, len(r.Attrs))
		for k, v := range r.Attrs {
			attrs = append(attrs, Attribute{Key: k, Value: v})
		}
		events = append(events, New(id, r.Timestamp, dur, attrs, r.Truth))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].ID < events[j].ID
	})

	s := &Store{
		events: events,
		byID:   make(map[int]int, len(events)),
	}
	for i := range events {
		s.byID[events[i].ID] = i
	}
	s.index()
	return s, nil
}

func validate(index int, r Record) error {
	if !r.HasTime {
		return &InvalidFormatError{Index: index, Field: "timestamp"}
	}
	if len(r.Attrs) == 0 {
		return &InvalidFormatError{Index: index, Field: "attributes"}
	}
	return nil
}

// index builds the axis and label lookups consulted by search rules.
func (s *Store) index() {
	s.axes = make(map[string][]float64)
	labelCounts := make(map[string]int)
	axisSets := make(map[string]map[float64]bool)

	for _, e := range s.events {
		for _, a := range e.Attrs() {
			if a.Value.Numeric {
				if axisSets[a.Key] == nil {
					axisSets[a.Key] = make(map[float64]bool)
				}
				axisSets[a.Key][a.Value.Num] = true
			}
		}
		if lab := e.Label(); lab != "" {
			labelCounts[lab]++
		}
		if e.Timestamp > s.lastTime {
			s.lastTime = e.Timestamp
		}
		if s.firstTime == 0 || e.Timestamp < s.firstTime {
			s.firstTime = e.Timestamp
		}
	}

	for key, set := range axisSets {
		vals := make([]float64, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Float64s(vals)
		s.axes[key] = vals
	}

	s.labels = make([]string, 0, len(labelCounts))
	for lab := range labelCounts {
		s.labels = append(s.labels, lab)
	}
	// Most frequent first; ties alphabetical so ranks are stable.
	sort.Slice(s.labels, func(i, j int) bool {
		if labelCounts[s.labels[i]] != labelCounts[s.labels[j]] {
			return labelCounts[s.labels[i]] > labelCounts[s.labels[j]]
		}
		return s.labels[i] < s.labels[j]
	})
	s.labelRank = make(map[string]int, len(s.labels))
	for i, lab := range s.labels {
		s.labelRank[lab] = i
	}
}

// Len returns the number of events in the store.
func (s *Store) Len() int {
	return len(s.events)
}

// Events returns the events in chronological order. Callers must treat the
// slice as read-only.
func (s *Store) Events() []Event {
	return s.events
}

// ByID returns the event with the given id.
func (s *Store) ByID(id int) (Event, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Event{}, false
	}
	return s.events[i], true
}

// LastTime returns the latest timestamp in the store.
func (s *Store) LastTime() int64 {
	return s.lastTime
}

// FirstTime returns the earliest timestamp in the store.
func (s *Store) FirstTime() int64 {
	return s.firstTime
}

// AxisValues returns the sorted distinct values of a numeric attribute, or
// nil if the key never appears with a numeric value.
func (s *Store) AxisValues(key string) []float64 {
	return s.axes[key]
}

// RankFromTop returns the 0-based rank of val among the distinct values of
// the axis, counting from the largest. The second return is false when the
// key is not a numeric axis or val never occurs on it.
func (s *Store) RankFromTop(key string, val float64) (int, bool) {
	vals := s.axes[key]
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i] == val {
			return len(vals) - 1 - i, true
		}
	}
	return 0, false
}

// RankFromBottom is RankFromTop counting from the smallest value.
func (s *Store) RankFromBottom(key string, val float64) (int, bool) {
	for i, v := range s.axes[key] {
		if v == val {
			return i, true
		}
	}
	return 0, false
}

// LabelRank returns the 0-based frequency rank of a label (0 = most
// common), or false if the label never occurs.
func (s *Store) LabelRank(label string) (int, bool) {
	r, ok := s.labelRank[label]
	return r, ok
}

// Labels returns the distinct labels in frequency order.
func (s *Store) Labels() []string {
	return s.labels
}
