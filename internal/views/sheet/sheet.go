package sheet

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"tintaria/internal/colorspace"
)

// BatchSheetRow is one component line on the printable sheet.
type BatchSheetRow struct {
	Order         int
	ItemCode      string
	ItemName      string
	ColorHex      string
	Ratio         float64
	WeightG       float64
	RequiredUnits float64
	StockUnit     string
	Cost          decimal.Decimal
	HasStock      bool
}

// BatchSheetData aggregates everything the production sheet renders.
type BatchSheetData struct {
	BatchCode          string
	FormulaDescription string
	FormulaCode        string
	OperatorName       string
	RunDate            time.Time
	TargetVolumeML     float64
	TargetWeightG      float64
	RemovedForTestingG float64
	Rows               []BatchSheetRow
	TotalWeightG       float64
	TotalVolumeML      float64
	TotalCost          decimal.Decimal
	CostPerLiter       decimal.Decimal
	Currency           string
	AllInStock         bool
	Palette            Palette
}

// FormatQuantity renders a quantity with two decimal places and a trailing unit.
func FormatQuantity(value float64, unit string) string {
	return fmt.Sprintf("%.2f %s", value, unit)
}

// FormatMoney renders a decimal amount with its currency code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	if strings.TrimSpace(currency) == "" {
		currency = "BRL"
	}
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}

// FormatDate renders the supplied time using a production-friendly layout.
func FormatDate(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.Format("02 Jan 2006")
}

// DefaultDash returns an em dash when the provided value is empty or whitespace.
func DefaultDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

// SwatchTextColor picks ink that stays readable over the given swatch color.
func SwatchTextColor(hex string) string {
	rgb, err := colorspace.ParseHex(hex)
	if err != nil {
		return "#1f2937"
	}
	if rgb.Luminance() > 0.45 {
		return "#1f2937"
	}
	return "#f8fafc"
}

// BatchSheet renders the printable production sheet for one batch.
func BatchSheet(data BatchSheetData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		palette := data.Palette
		if palette.Key == "" {
			palette = Resolve(DefaultKey)
		}

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Batch %s</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 2rem; background: %s; color: %s; }
h1 { font-size: 1.4rem; margin: 0; color: %s; }
.meta { margin: 0.75rem 0 1.5rem; color: %s; font-size: 0.9rem; }
.meta span { margin-right: 1.5rem; }
table { width: 100%%; border-collapse: collapse; font-size: 0.9rem; }
th, td { border-bottom: 1px solid %s; padding: 0.5rem 0.4rem; text-align: left; }
th { text-transform: uppercase; font-size: 0.7rem; letter-spacing: 0.05em; color: %s; }
td.num, th.num { text-align: right; }
.swatch { display: inline-block; min-width: 4.5rem; padding: 0.15rem 0.4rem; border-radius: 0.25rem; border: 1px solid %s; font-size: 0.75rem; }
.short { color: #b91c1c; font-weight: 600; }
tfoot td { font-weight: 600; border-top: 2px solid %s; }
.banner { border: 1px solid #b91c1c; color: #b91c1c; padding: 0.5rem 0.75rem; margin-bottom: 1rem; font-size: 0.85rem; }
@media print { body { margin: 0.5rem; } }
</style>
</head>
<body data-sheet-style=%q>
`,
			templ.EscapeString(data.BatchCode),
			palette.PaperColor, palette.InkColor, palette.AccentColor, palette.MutedColor,
			palette.RuleColor, palette.MutedColor, palette.RuleColor, palette.AccentColor,
			palette.Key,
		); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "<h1>Production Batch %s</h1>\n", templ.EscapeString(data.BatchCode)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p class="meta"><span>Formula: %s (%s)</span><span>Run: %s</span><span>Operator: %s</span></p>`+"\n",
			templ.EscapeString(data.FormulaDescription),
			templ.EscapeString(DefaultDash(data.FormulaCode)),
			templ.EscapeString(FormatDate(data.RunDate)),
			templ.EscapeString(DefaultDash(data.OperatorName)),
		); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p class="meta"><span>Target: %s / %s</span><span>Removed for testing: %s</span></p>`+"\n",
			FormatQuantity(data.TargetVolumeML, "ml"),
			FormatQuantity(data.TargetWeightG, "g"),
			FormatQuantity(data.RemovedForTestingG, "g"),
		); err != nil {
			return err
		}

		if !data.AllInStock {
			if _, err := io.WriteString(w, `<p class="banner">Stock is short for at least one component. Replenish before mixing.</p>`+"\n"); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<table>
<thead>
<tr><th>#</th><th>Code</th><th>Component</th><th>Shade</th><th class="num">Ratio</th><th class="num">Weight</th><th class="num">Pull</th><th class="num">Cost</th></tr>
</thead>
<tbody>
`); err != nil {
			return err
		}

		for _, row := range data.Rows {
			swatch := "—"
			if strings.TrimSpace(row.ColorHex) != "" {
				swatch = fmt.Sprintf(`<span class="swatch" style="background:%s;color:%s">%s</span>`,
					templ.EscapeString(row.ColorHex),
					SwatchTextColor(row.ColorHex),
					templ.EscapeString(row.ColorHex),
				)
			}
			stockNote := ""
			if !row.HasStock {
				stockNote = ` <span class="short">short</span>`
			}
			if _, err := fmt.Fprintf(w, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td class="num">%.2f%%</td><td class="num">%s</td><td class="num">%s%s</td><td class="num">%s</td></tr>`+"\n",
				row.Order,
				templ.EscapeString(DefaultDash(row.ItemCode)),
				templ.EscapeString(row.ItemName),
				swatch,
				row.Ratio,
				FormatQuantity(row.WeightG, "g"),
				FormatQuantity(row.RequiredUnits, row.StockUnit),
				stockNote,
				FormatMoney(row.Cost, data.Currency),
			); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, `</tbody>
<tfoot>
<tr><td colspan="5">Totals</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td></tr>
<tr><td colspan="5">Cost per liter</td><td colspan="3" class="num">%s</td></tr>
</tfoot>
</table>
</body>
</html>
`,
			FormatQuantity(data.TotalWeightG, "g"),
			FormatQuantity(data.TotalVolumeML, "ml"),
			FormatMoney(data.TotalCost, data.Currency),
			FormatMoney(data.CostPerLiter, data.Currency),
		); err != nil {
			return err
		}

		return nil
	})
}
