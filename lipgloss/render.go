package lipgloss

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/untangle"
	"github.com/muesli/termenv"
)

// Renderer formats an analysis result as a terminal summary: one block per
// group listing its hunks, optionally with their changed lines.
type Renderer struct {
	lg        *lipgloss.Renderer
	theme     *Theme
	ShowLines bool
}

// NewRenderer creates a Renderer for output written to w. A nil theme uses
// DefaultTheme. The color profile is detected from w and the environment.
func NewRenderer(w io.Writer, theme *Theme) *Renderer {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &Renderer{lg: lipgloss.NewRenderer(w), theme: theme}
}

// SetColorProfile overrides the detected color profile; termenv.Ascii
// disables colors.
func (r *Renderer) SetColorProfile(p termenv.Profile) {
	r.lg.SetColorProfile(p)
}

func (r *Renderer) style(color string) lipgloss.Style {
	s := r.lg.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if color != "" {
		s = s.Foreground(lipgloss.Color(color))
	}
	return s
}

// Render returns the summary of result for the change made of files.
// Non-source groups list whole files; ids that resolve to nothing are
// printed bare.
func (r *Renderer) Render(result *untangle.Result, files []*untangle.DiffFile) string {
	lookup := untangle.NewLookup(files)
	groups := result.Ordered()
	total := 0
	for _, g := range groups {
		total += len(g.HunkIDs)
	}

	muted := r.style(r.theme.Muted)
	var b strings.Builder
	b.WriteString(r.style(r.theme.Title).Bold(true).Render(
		fmt.Sprintf("%s, %s", plural(len(groups), "group"), plural(total, "hunk"))))
	b.WriteString("\n")

	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(r.style(r.theme.LabelColor(g.Label)).Bold(true).Render(g.ID + " " + string(g.Label)))
		b.WriteString(" " + muted.Render("("+plural(len(g.HunkIDs), "hunk")+")"))
		b.WriteString("\n")
		if g.CommitMessage != "" {
			b.WriteString("  " + r.style(r.theme.Title).Italic(true).Render(g.CommitMessage) + "\n")
		}
		for _, id := range g.HunkIDs {
			switch h, f := lookup.Resolve(g, id); {
			case h != nil:
				r.renderHunk(&b, h)
			case f != nil:
				b.WriteString("  " + f.Description() + "\n")
			default:
				b.WriteString("  " + muted.Render(string(id)) + "\n")
			}
		}
	}
	return b.String()
}

func (r *Renderer) renderHunk(b *strings.Builder, h *untangle.DiffHunk) {
	b.WriteString("  " + h.Description() + "\n")
	for _, a := range h.Actions {
		b.WriteString("    " + r.style(r.theme.Action).Render(a.Type+": "+a.Description) + "\n")
	}
	if !r.ShowLines {
		return
	}
	deleted, added := r.style(r.theme.Deleted), r.style(r.theme.Added)
	for _, l := range h.Old.Lines {
		b.WriteString("    " + deleted.Render("-"+l) + "\n")
	}
	for _, l := range h.New.Lines {
		b.WriteString("    " + added.Render("+"+l) + "\n")
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
