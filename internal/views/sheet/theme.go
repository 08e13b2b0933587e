package sheet

import "strings"

// Option represents a selectable sheet style exposed to the preferences form.
type Option struct {
	Value string
	Label string
}

// Palette contains the resolved styling primitives for the printable batch
// sheet.
type Palette struct {
	Key         string
	PaperColor  string
	InkColor    string
	AccentColor string
	RuleColor   string
	MutedColor  string
}

// DefaultKey defines the fallback sheet style when no preference exists.
const DefaultKey = "ledger"

var catalogue = map[string]Palette{
	"ledger": {
		Key:         "ledger",
		PaperColor:  "#ffffff",
		InkColor:    "#1f2937",
		AccentColor: "#92400e",
		RuleColor:   "#d6d3d1",
		MutedColor:  "#78716c",
	},
	"blueprint": {
		Key:         "blueprint",
		PaperColor:  "#f8fafc",
		InkColor:    "#0f172a",
		AccentColor: "#1d4ed8",
		RuleColor:   "#cbd5e1",
		MutedColor:  "#64748b",
	},
	"workshop": {
		Key:         "workshop",
		PaperColor:  "#ffffff",
		InkColor:    "#000000",
		AccentColor: "#000000",
		RuleColor:   "#000000",
		MutedColor:  "#404040",
	},
}

var options = []Option{
	{Value: "ledger", Label: "Ledger (Warm)"},
	{Value: "blueprint", Label: "Blueprint (Blue)"},
	{Value: "workshop", Label: "Workshop (High Contrast)"},
}

// Resolve returns the registered palette for the provided key.
func Resolve(key string) Palette {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if value, ok := catalogue[normalized]; ok {
		return value
	}
	return catalogue[DefaultKey]
}

// Options exposes the available sheet styles for rendering in a form control.
func Options() []Option {
	return options
}
