// Package render wraps the Markdown-to-markup collaborator. The core treats
// rendering as a pure function over the full accumulated turn text; nothing
// here keeps state between calls.
package render

import (
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

type Renderer interface {
	Render(text string) (string, error)
}

type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

func NewMarkdownRenderer(wordWrap int) (*MarkdownRenderer, error) {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not create markdown renderer")
	}
	return &MarkdownRenderer{renderer: tr}, nil
}

func (r *MarkdownRenderer) Render(text string) (string, error) {
	return r.renderer.Render(text)
}

var _ Renderer = (*MarkdownRenderer)(nil)

// PlainRenderer passes text through untouched. Used when stdout is not a
// terminal and in tests.
type PlainRenderer struct{}

func (PlainRenderer) Render(text string) (string, error) {
	return text, nil
}

var _ Renderer = PlainRenderer{}
