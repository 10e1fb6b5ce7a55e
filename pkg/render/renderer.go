package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Renderer turns assistant content into displayable text.
type Renderer interface {
	Render(content string) (string, error)
}

// Strategy names a Renderer implementation.
type Strategy string

const (
	StrategyPlain    Strategy = "plain"
	StrategyBlocks   Strategy = "blocks"
	StrategyMarkdown Strategy = "markdown"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyPlain, StrategyBlocks, StrategyMarkdown:
		return st, nil
	default:
		return "", errors.Errorf("unknown render strategy %q (expected plain, blocks or markdown)", s)
	}
}

type Options struct {
	// Width wraps output when positive.
	Width int
	// GlamourStyle is a glamour standard style name ("dark", "light", "notty").
	// Empty or "auto" picks dark or light from the terminal background.
	GlamourStyle string
	Styles       *Styles
}

// New builds the renderer for strategy. The markdown strategy falls back to the
// blocks renderer when glamour cannot be initialized.
func New(strategy Strategy, opts Options) (Renderer, error) {
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	blocks := &BlocksRenderer{Styles: styles, Width: opts.Width}

	switch strategy {
	case StrategyPlain:
		return PlainRenderer{}, nil
	case StrategyBlocks:
		return blocks, nil
	case StrategyMarkdown:
		g, err := NewGlamourRenderer(opts.GlamourStyle, opts.Width)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable, using blocks renderer")
			return blocks, nil
		}
		return &FallbackRenderer{Primary: g, Fallback: blocks}, nil
	default:
		return nil, errors.Errorf("unknown render strategy %q", strategy)
	}
}

// PlainRenderer returns content unchanged.
type PlainRenderer struct{}

func (PlainRenderer) Render(content string) (string, error) {
	return content, nil
}

type Styles struct {
	Heading   lipgloss.Style
	Text      lipgloss.Style
	Bold      lipgloss.Style
	Bullet    lipgloss.Style
	Image     lipgloss.Style
	Code      lipgloss.Style
	BulletStr string
}

func DefaultStyles() Styles {
	return Styles{
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#2d3748", Dark: "#e2e8f0"}),
		Text:      lipgloss.NewStyle(),
		Bold:      lipgloss.NewStyle().Bold(true),
		Bullet:    lipgloss.NewStyle().Foreground(lipgloss.Color("#718096")),
		Image:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("63")),
		Code:      lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		BulletStr: "•",
	}
}

// NoStyles renders every block without terminal escapes.
func NoStyles() Styles {
	return Styles{BulletStr: "•"}
}

// BlocksRenderer renders the Document produced by Parse: headings bold, list
// items bulleted, bold spans bold, images as labelled links.
type BlocksRenderer struct {
	Styles Styles
	Width  int
}

func (r *BlocksRenderer) Render(content string) (string, error) {
	doc := Parse(content)
	if len(doc.Blocks) == 0 {
		return strings.TrimSpace(content), nil
	}
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		lines = append(lines, r.renderBlock(b))
	}
	out := strings.Join(lines, "\n")
	if r.Width > 0 {
		out = lipgloss.NewStyle().Width(r.Width).Render(out)
	}
	return out, nil
}

func (r *BlocksRenderer) renderBlock(b Block) string {
	switch b.Kind {
	case BlockHeading:
		return r.Styles.Heading.Render(b.Text())
	case BlockListItem:
		marker := r.Styles.BulletStr
		if b.Index > 0 {
			marker = strconv.Itoa(b.Index) + "."
		}
		return strings.Repeat("  ", b.Level) + r.Styles.Bullet.Render(marker) + " " + r.renderSpans(b.Spans)
	case BlockImage:
		return r.Styles.Image.Render(imageLabel(Block{Alt: "image: " + b.Alt, URL: b.URL}))
	case BlockCode:
		return r.Styles.Code.Render(b.Code)
	default:
		return r.renderSpans(b.Spans)
	}
}

func (r *BlocksRenderer) renderSpans(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Bold {
			sb.WriteString(r.Styles.Bold.Render(s.Text))
			continue
		}
		sb.WriteString(r.Styles.Text.Render(s.Text))
	}
	return sb.String()
}

// GlamourRenderer renders full markdown for the terminal.
type GlamourRenderer struct {
	tr *glamour.TermRenderer
}

func NewGlamourRenderer(style string, width int) (*GlamourRenderer, error) {
	style = strings.TrimSpace(style)
	if style == "" || style == "auto" {
		style = "light"
		if termenv.HasDarkBackground() {
			style = "dark"
		}
	}
	options := []glamour.TermRendererOption{glamour.WithStylePath(style)}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}
	tr, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create glamour renderer")
	}
	return &GlamourRenderer{tr: tr}, nil
}

func (g *GlamourRenderer) Render(content string) (string, error) {
	out, err := g.tr.Render(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return strings.Trim(out, "\n"), nil
}

// FallbackRenderer uses Fallback whenever Primary fails.
type FallbackRenderer struct {
	Primary  Renderer
	Fallback Renderer
}

func (f *FallbackRenderer) Render(content string) (string, error) {
	out, err := f.Primary.Render(content)
	if err == nil {
		return out, nil
	}
	log.Debug().Err(err).Msg("primary renderer failed")
	return f.Fallback.Render(content)
}

// RenderOrPlain renders content and degrades to the raw text on error.
func RenderOrPlain(r Renderer, content string) string {
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
