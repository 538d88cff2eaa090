package layout

import (
	"math"
	"strconv"
	"strings"
)

// LayoutLine lays out a two column row. The left field is
// floor(width*ratio)-indent columns, the right field the rest of width.
// Oversized text is cut from the end on the left and from the start on the
// right, short text is padded towards the middle. The row is prefixed with
// indent spaces and ends with a newline, so it is always width+indent+1
// characters long.
func LayoutLine(left, right string, width int, ratio float64, indent int) string {
	if width < 0 {
		width = 0
	}
	if indent < 0 {
		indent = 0
	}
	lwidth := int(math.Floor(float64(width)*ratio)) - indent
	if lwidth < 0 {
		lwidth = 0
	}
	if lwidth > width {
		lwidth = width
	}
	rwidth := width - lwidth

	l := []rune(left)
	if len(l) > lwidth {
		l = l[:lwidth]
	}
	r := []rune(right)
	if len(r) > rwidth {
		r = r[len(r)-rwidth:]
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString(string(l))
	b.WriteString(strings.Repeat(" ", lwidth-len(l)))
	b.WriteString(strings.Repeat(" ", rwidth-len(r)))
	b.WriteString(string(r))
	b.WriteByte('\n')
	return b.String()
}

// formatter renders amounts with the receipt's precision
type formatter struct {
	precision Precision
}

func (f formatter) price(amount float64) string {
	return strconv.FormatFloat(amount, 'f', f.precision.Price, 64)
}

func (f formatter) money(amount float64) string {
	return strconv.FormatFloat(amount, 'f', f.precision.Money, 64)
}

// quantity prints whole numbers without decimals
func (f formatter) quantity(amount float64) string {
	if math.Floor(amount) != amount {
		return strconv.FormatFloat(amount, 'f', f.precision.Quantity, 64)
	}
	return strconv.FormatFloat(amount, 'f', 0, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// present reports whether s has non-blank content
func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
