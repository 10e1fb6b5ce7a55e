package config

import (
	"sort"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
)

// Variant is a named preset for the widget. The presets differ only in
// configuration; they share one implementation.
type Variant struct {
	Name          string
	Description   string
	OpenOnStart   bool
	FailurePolicy exchange.FailurePolicy
	Render        render.Strategy
	Title         string
	Placeholder   string
}

const DefaultVariant = "floating"

var variants = map[string]Variant{
	"inline": {
		Name:          "inline",
		Description:   "Full panel, open from the start, apologizes on failures, formats replies",
		OpenOnStart:   true,
		FailurePolicy: exchange.FailureFallback,
		Render:        render.StrategyBlocks,
		Title:         "Chat",
		Placeholder:   "Type your message...",
	},
	"floating": {
		Name:          "floating",
		Description:   "Collapsed button that opens a panel, silent on failures, plain replies",
		FailurePolicy: exchange.FailureSilent,
		Render:        render.StrategyPlain,
		Title:         "Chat with Leo",
		Placeholder:   "Type a message...",
	},
	"floating-markdown": {
		Name:          "floating-markdown",
		Description:   "Collapsed button that opens a panel, silent on failures, markdown replies",
		FailurePolicy: exchange.FailureSilent,
		Render:        render.StrategyMarkdown,
		Title:         "Leomartile",
		Placeholder:   "Ask anything...",
	},
}

func LookupVariant(name string) (Variant, bool) {
	v, ok := variants[name]
	return v, ok
}

func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
