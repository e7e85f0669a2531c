// Package score turns the two complexities of an event into a single
// memorability number. Unexpectedness is always Cg - Cd; strategies differ
// in how that raw quantity is shaped into a score.
package score

import (
	"fmt"
	"math"
)

// Strategy maps a description complexity and a generation complexity to a
// memorability score.
type Strategy interface {
	Name() string
	Score(cd, cg float64) float64
}

// Unexpectedness is the raw signal every strategy starts from.
func Unexpectedness(cd, cg float64) float64 {
	return cg - cd
}

// Raw scores an event by its unexpectedness directly.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (Raw) Score(cd, cg float64) float64 {
	return Unexpectedness(cd, cg)
}

// Normalized divides unexpectedness by the description complexity, so
// events of very different sizes become comparable.
type Normalized struct{}

func (Normalized) Name() string { return "normalized" }

func (Normalized) Score(cd, cg float64) float64 {
	if cd == 0 {
		return 0
	}
	return Unexpectedness(cd, cg) / cd
}

// Thresholded clips unexpectedness below a floor to zero: only events more
// surprising than Theta register at all.
type Thresholded struct {
	Theta float64
}

func (t Thresholded) Name() string { return "thresholded" }

func (t Thresholded) Score(cd, cg float64) float64 {
	return math.Max(0, Unexpectedness(cd, cg)-t.Theta)
}

// New returns the named strategy. Theta only applies to "thresholded" and
// must not be negative.
func New(name string, theta float64) (Strategy, error) {
	switch name {
	case "", "raw":
		return Raw{}, nil
	case "normalized":
		return Normalized{}, nil
	case "thresholded":
		if theta < 0 {
			return nil, fmt.Errorf("threshold must not be negative, got %v", theta)
		}
		return Thresholded{Theta: theta}, nil
	}
	return nil, fmt.Errorf("unknown scoring strategy %q", name)
}

// Names lists the registered strategy names.
func Names() []string {
	return []string{"raw", "normalized", "thresholded"}
}
