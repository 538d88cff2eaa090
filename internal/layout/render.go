package layout

import (
	"fmt"
	"strings"
)

// DefaultWidth is the column count of an 80mm paper roll in font A
const DefaultWidth = 40

const (
	lineRatio  = 0.6
	divider    = "-------"
	cashierHR  = 32
	lineIndent = 2
)

// Options controls the canvas the receipt is laid out on
type Options struct {
	Width int
}

func (o Options) width() int {
	if o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

// Render lays out a receipt. It has no side effects; the returned ops are
// played onto a device by the caller, which also issues the final cut.
func Render(r Receipt, opts Options) []Op {
	b := &builder{
		width: opts.width(),
		fmt:   formatter{precision: r.Precision},
	}

	b.header(r)
	b.orderLines(r.OrderLines)

	taxesIncluded := true
	if b.fmt.money(r.Subtotal) != b.fmt.money(r.TotalWithTax) {
		b.text(b.line("", divider, 0.5, 0))
		b.text(b.line("Subtotal", b.fmt.money(r.Subtotal), lineRatio, 0))
		b.taxes(r.TaxDetails)
		taxesIncluded = false
	}

	b.text(b.line("", divider, 0.5, 0))
	b.style(Style{Align: AlignCenter, Height: 2})
	b.text(b.line("         TOTAL", b.fmt.money(r.TotalWithTax), lineRatio, 0))
	b.text("\n\n")

	b.style(Style{Align: AlignCenter})
	for _, p := range r.PaymentLines {
		b.text(b.line(p.Journal, b.fmt.money(p.Amount), lineRatio, 0))
	}

	b.text("\n")
	b.style(Style{Align: AlignCenter, Height: 2})
	b.text(b.line("        CHANGE", b.fmt.money(r.Change), lineRatio, 0))
	b.style(Style{Align: AlignCenter})
	b.text("\n")

	if r.TotalDiscount != 0 {
		b.text(b.line("Discounts", b.fmt.money(r.TotalDiscount), lineRatio, 0))
	}
	if taxesIncluded {
		b.taxes(r.TaxDetails)
	}

	b.footer(r)
	return b.ops
}

type builder struct {
	width int
	fmt   formatter
	ops   []Op
}

func (b *builder) text(s string) {
	b.ops = append(b.ops, TextOp{Text: s})
}

func (b *builder) style(s Style) {
	b.ops = append(b.ops, StyleOp{Style: s})
}

func (b *builder) line(left, right string, ratio float64, indent int) string {
	return LayoutLine(left, right, b.width, ratio, indent)
}

func (b *builder) header(r Receipt) {
	c := r.Company
	if c.Logo != "" {
		b.style(Style{Align: AlignCenter})
		b.ops = append(b.ops, ImageOp{Base64: c.Logo})
		b.text("\n")
	} else {
		b.style(Style{Align: AlignCenter, Bold: true, Height: 2, Width: 2})
		b.text(c.Name + "\n")
	}

	b.style(Style{Align: AlignCenter, Bold: true})
	if present(c.ContactAddress) {
		b.text(c.ContactAddress + "\n")
	}
	if present(c.Phone) {
		b.text("Tel: " + c.Phone + "\n")
	}
	if present(c.VAT) {
		b.text("VAT: " + c.VAT + "\n")
	}
	if present(c.Email) {
		b.text(c.Email + "\n")
	}
	if present(c.Website) {
		b.text(c.Website + "\n")
	}
	if present(r.Header) {
		b.text(r.Header + "\n")
	}
	if present(r.Cashier) {
		b.text(strings.Repeat("-", cashierHR) + "\n")
		b.text("Served by " + r.Cashier + "\n")
	}

	b.text("\n\n")
	b.style(Style{Align: AlignCenter})
}

func (b *builder) orderLines(lines []OrderLine) {
	for _, l := range lines {
		displayed := b.fmt.price(l.PriceDisplay)
		if l.Discount == 0 && l.UnitName == DefaultUnit && l.Quantity == 1 {
			b.text(b.line(l.ProductName, displayed, lineRatio, 0))
			continue
		}

		b.text(b.line(l.ProductName, "", lineRatio, 0))
		if l.Discount != 0 {
			b.text(b.line("Discount: "+percent(l.Discount), "", lineRatio, lineIndent))
		}

		qty := b.fmt.quantity(l.Quantity)
		if l.UnitName != DefaultUnit {
			qty += l.UnitName
		}
		b.text(b.line(qty+" x "+b.fmt.price(l.Price), displayed, lineRatio, lineIndent))
	}
}

func (b *builder) taxes(details []TaxDetail) {
	for _, t := range details {
		b.text(b.line(t.Tax.Name, b.fmt.money(t.Amount), lineRatio, 0))
	}
}

func (b *builder) footer(r Receipt) {
	if present(r.Footer) {
		b.text("\n" + r.Footer + "\n\n")
	}
	b.text(r.Name + "\n")
	b.text(FormatDate(r.Date))

	if r.Barcode != "" {
		b.text("\n")
		b.ops = append(b.ops, BarcodeOp{Value: r.Barcode})
	}
}

// FormatDate prints DD/MM/YYYY HH:MM, turning the zero based month into a
// calendar month.
func FormatDate(d Date) string {
	return fmt.Sprintf("%02d/%02d/%04d %02d:%02d", d.Day, d.Month+1, d.Year, d.Hour, d.Minute)
}
