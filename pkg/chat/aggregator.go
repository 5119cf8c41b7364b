package chat

import (
	"strings"
)

// Aggregator accumulates the open assistant turn's text. Deltas only ever
// append, so the content length is monotonically non-decreasing for the
// duration of a turn.
type Aggregator struct {
	completion strings.Builder
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Reset clears the accumulated content for a new turn.
func (a *Aggregator) Reset() {
	a.completion.Reset()
}

// Append adds one delta and returns the full accumulated content. Renderers
// always get the whole text, not a diff, so a re-render of the markdown pass
// stays idempotent.
func (a *Aggregator) Append(delta string) string {
	a.completion.WriteString(delta)
	return a.completion.String()
}

// Content returns the full accumulated content so far.
func (a *Aggregator) Content() string {
	return a.completion.String()
}
