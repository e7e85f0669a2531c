package vocab

import (
	"log"

	"github.com/mkealey/salience/internal/event"
)

// DescSymbol is one symbol of an event's description with its cost.
type DescSymbol struct {
	Symbol string  `json:"symbol"`
	Cost   float64 `json:"cost"`
	Gap    bool    `json:"gap,omitempty"`
}

// Description is the ordered symbolic description of an event. Total is the
// event's description complexity Cd.
type Description struct {
	EventID int          `json:"event_id"`
	Symbols []DescSymbol `json:"symbols"`
	Total   float64      `json:"total"`
	Gaps    int          `json:"gaps"`
}

// Encode produces the ordered description of an event and sums the
// vocabulary costs. Attributes are taken in key order, so the description
// is deterministic. Unseen values fall back to the gap cost and are logged
// as a non-fatal warning — encoding never fails.
func (v *Vocabulary) Encode(e event.Event) Description {
	attrs := e.Attrs()
	d := Description{EventID: e.ID, Symbols: make([]DescSymbol, 0, len(attrs))}

	for _, a := range attrs {
		sym := Symbol(a.Key, a.Value)
		cost, gap := v.CostOrFallback(sym)
		if gap {
			d.Gaps++
			log.Printf("vocab: gap for %q on event %d, using fallback cost %.3f", sym, e.ID, cost)
		}
		d.Symbols = append(d.Symbols, DescSymbol{Symbol: sym, Cost: cost, Gap: gap})
		d.Total += cost
	}
	return d
}
