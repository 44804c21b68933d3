package converter

import (
	"regexp"
	"strings"
)

const fence = "```"

// Clean strips every opening fence tagged with dest (any case) and then every
// remaining fence marker. Text between markers is left untouched.
func Clean(s, dest string) string {
	return clean(s, openingFence(dest))
}

func openingFence(dest string) *regexp.Regexp {
	if dest == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(fence+dest+"\n"))
}

func clean(s string, opening *regexp.Regexp) string {
	if opening != nil {
		s = opening.ReplaceAllLiteralString(s, "")
	}
	return strings.ReplaceAll(s, fence, "")
}

// Accumulator builds the cumulative reply for one conversion. The whole buffer
// is re-cleaned on every fragment, since a marker can span fragments.
type Accumulator struct {
	opening *regexp.Regexp
	raw     strings.Builder
}

func NewAccumulator(dest string) *Accumulator {
	return &Accumulator{opening: openingFence(dest)}
}

// Add appends fragment and returns the cleaned text so far.
func (a *Accumulator) Add(fragment string) string {
	a.raw.WriteString(fragment)
	return a.String()
}

func (a *Accumulator) String() string {
	return clean(a.raw.String(), a.opening)
}

func (a *Accumulator) Raw() string {
	return a.raw.String()
}
