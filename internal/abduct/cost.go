// Package abduct searches for the lowest-cost generative explanation of an
// event: the cheapest hypothesis, built from inference rules over the
// vocabulary and previously established facts, whose coverage equals the
// event's attributes.
package abduct

import "math"

// BitLength returns the number of bits needed to write n under a
// double-length prefix encoding, so that programs of different lengths
// remain self-delimiting.
func BitLength(n int) float64 {
	if n <= 1 {
		return 2
	}
	base := math.Log2(float64(n)) + 1
	return 2*(math.Log2(base)+1) + base
}

// StepOverhead returns the fixed per-step framing cost for a grammar of
// numRules rules: the bits to name the rule plus one separator bit.
func StepOverhead(numRules int) float64 {
	if numRules <= 1 {
		return 1
	}
	return math.Log2(float64(numRules)) + 1
}
