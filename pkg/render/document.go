package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockListItem  BlockKind = "list-item"
	BlockParagraph BlockKind = "paragraph"
	BlockImage     BlockKind = "image"
	BlockCode      BlockKind = "code"
)

// Span is a run of inline text. Bold is set for text inside **strong** markers.
type Span struct {
	Text string
	Bold bool
}

// Block is one displayable unit of a reply.
//
// Level is the heading level for headings and the nesting depth (starting at 0)
// for list items. Index is the 1-based position in an ordered list, 0 otherwise.
type Block struct {
	Kind  BlockKind
	Level int
	Index int
	Spans []Span
	Alt   string
	URL   string
	Code  string
}

// Text returns the block's inline text without formatting.
func (b Block) Text() string {
	switch b.Kind {
	case BlockImage:
		return b.Alt
	case BlockCode:
		return b.Code
	}
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

type Document struct {
	Blocks []Block
}

// PlainText flattens the document, one block per line.
func (d Document) PlainText() string {
	lines := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		switch b.Kind {
		case BlockListItem:
			lines = append(lines, strings.Repeat("  ", b.Level)+"- "+b.Text())
		case BlockImage:
			lines = append(lines, imageLabel(b))
		default:
			lines = append(lines, b.Text())
		}
	}
	return strings.Join(lines, "\n")
}

var markdownParser parser.Parser = goldmark.New().Parser()

// Parse converts assistant text into structured blocks. Headings, list items,
// bold spans, images and code are recognized; everything else degrades to
// paragraph text.
func Parse(content string) Document {
	src := []byte(content)
	root := markdownParser.Parse(text.NewReader(src))

	b := &builder{src: src}
	b.walkBlocks(root, 0)
	return Document{Blocks: b.blocks}
}

type builder struct {
	src    []byte
	blocks []Block

	kind    BlockKind
	level   int
	index   int
	pending []Span
}

func (b *builder) walkBlocks(n ast.Node, depth int) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.walkBlock(c, depth)
	}
}

func (b *builder) walkBlock(n ast.Node, depth int) {
	switch n := n.(type) {
	case *ast.Heading:
		b.emitInline(n, BlockHeading, n.Level, 0)
	case *ast.List:
		i := n.Start
		if i == 0 {
			i = 1
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			index := 0
			if n.IsOrdered() {
				index = i
				i++
			}
			b.walkListItem(c, depth, index)
		}
	case *ast.Paragraph, *ast.TextBlock:
		b.emitInline(n, BlockParagraph, 0, 0)
	case *ast.FencedCodeBlock:
		b.emitCode(n)
	case *ast.CodeBlock:
		b.emitCode(n)
	case *ast.HTMLBlock:
		// raw html is not rendered
	case *ast.ThematicBreak:
	default:
		b.walkBlocks(n, depth)
	}
}

func (b *builder) walkListItem(item ast.Node, depth int, index int) {
	emitted := false
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if !emitted {
				b.emitInline(c, BlockListItem, depth, index)
				emitted = true
				continue
			}
			b.emitInline(c, BlockParagraph, 0, 0)
		default:
			b.walkBlock(c, depth+1)
		}
	}
}

func (b *builder) emitCode(n ast.Node) {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(b.src))
	}
	code := strings.TrimRight(sb.String(), "\n")
	if code == "" {
		return
	}
	b.blocks = append(b.blocks, Block{Kind: BlockCode, Code: code})
}

func (b *builder) emitInline(n ast.Node, kind BlockKind, level int, index int) {
	b.kind, b.level, b.index = kind, level, index
	b.pending = nil
	b.walkInline(n, false)
	b.flush()
}

func (b *builder) walkInline(n ast.Node, bold bool) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			s := string(c.Segment.Value(b.src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				s += "\n"
			}
			b.add(s, bold)
		case *ast.String:
			b.add(string(c.Value), bold)
		case *ast.Emphasis:
			b.walkInline(c, bold || c.Level >= 2)
		case *ast.Image:
			b.flush()
			b.blocks = append(b.blocks, Block{
				Kind: BlockImage,
				Alt:  b.inlineText(c),
				URL:  string(c.Destination),
			})
		case *ast.AutoLink:
			b.add(string(c.URL(b.src)), bold)
		case *ast.RawHTML:
			// dropped
		default:
			b.walkInline(c, bold)
		}
	}
}

// inlineText collects the literal text below n, ignoring formatting.
func (b *builder) inlineText(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(b.src))
		case *ast.String:
			sb.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func (b *builder) add(s string, bold bool) {
	if s == "" {
		return
	}
	if l := len(b.pending); l > 0 && b.pending[l-1].Bold == bold {
		b.pending[l-1].Text += s
		return
	}
	b.pending = append(b.pending, Span{Text: s, Bold: bold})
}

func (b *builder) flush() {
	spans := b.pending
	b.pending = nil
	if len(spans) == 0 {
		return
	}
	spans[0].Text = strings.TrimLeft(spans[0].Text, " \t\n")
	last := len(spans) - 1
	spans[last].Text = strings.TrimRight(spans[last].Text, " \t\n")

	out := spans[:0]
	empty := true
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if strings.TrimSpace(s.Text) != "" {
			empty = false
		}
		out = append(out, s)
	}
	if empty {
		return
	}
	b.blocks = append(b.blocks, Block{
		Kind:  b.kind,
		Level: b.level,
		Index: b.index,
		Spans: out,
	})
}

func imageLabel(b Block) string {
	alt := b.Alt
	if alt == "" {
		alt = "image"
	}
	if b.URL == "" {
		return "[" + alt + "]"
	}
	return "[" + alt + "] " + b.URL
}
