package escpos

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// The raw document format is a small markup close to HTML:
//
//	<receipt>
//	  <div align="center"><h1>Corner Shop</h1></div>
//	  <line ratio="0.6"><left>Coffee</left><right>2.50</right></line>
//	  <hr/>
//	  <img src="data:image/png;base64,..."/>
//	  <cut/>
//	</receipt>
//
// div and p accept align="left|center|right". h1 is bold double size, h2
// bold double height, h3 bold. b, strong and em are bold. line lays out
// its left and right children as a two column row with optional ratio and
// indent attributes. cashdraw pulses the cash drawer. Unknown tags are
// ignored, their text is printed.

// MarkupTarget receives a rendered markup document
type MarkupTarget interface {
	layout.Canvas
	CashDraw(pin int) error
}

type styleFrame struct {
	tag   string
	style layout.Style
}

type markupLine struct {
	left, right strings.Builder
	ratio       float64
	indent      int
}

type markupRenderer struct {
	dev     MarkupTarget
	columns int
	stack   []styleFrame
	line    *markupLine
	side    *strings.Builder
	open    bool
}

// RenderMarkup prints doc onto dev with lines columns characters wide
func RenderMarkup(dev MarkupTarget, doc string, columns int) error {
	r := &markupRenderer{
		dev:     dev,
		columns: columns,
		stack:   []styleFrame{{tag: "", style: layout.Style{}}},
	}
	if err := dev.SetStyle(layout.Style{}); err != nil {
		return err
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		var err error
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return r.newline()
			}
			return errors.Wrap(z.Err(), "parse document")
		case html.TextToken:
			err = r.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, attrs := tagOf(z)
			err = r.start(name, attrs, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := z.TagName()
			err = r.end(string(name))
		}
		if err != nil {
			return err
		}
	}
}

func tagOf(z *html.Tokenizer) (string, map[string]string) {
	name, hasAttr := z.TagName()
	attrs := make(map[string]string)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return string(name), attrs
}

func (r *markupRenderer) top() layout.Style {
	return r.stack[len(r.stack)-1].style
}

func (r *markupRenderer) push(tag string, style layout.Style) error {
	r.stack = append(r.stack, styleFrame{tag: tag, style: style})
	return r.dev.SetStyle(style)
}

func (r *markupRenderer) pop(tag string) error {
	if len(r.stack) <= 1 || r.stack[len(r.stack)-1].tag != tag {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	return r.dev.SetStyle(r.top())
}

func (r *markupRenderer) write(s string) error {
	if s == "" {
		return nil
	}
	r.open = !strings.HasSuffix(s, "\n")
	return r.dev.Text(s)
}

func (r *markupRenderer) newline() error {
	if !r.open {
		return nil
	}
	return r.write("\n")
}

func (r *markupRenderer) text(raw string) error {
	s := collapseSpace(raw)
	if r.side != nil {
		if r.side.Len() == 0 {
			s = strings.TrimLeftFunc(s, unicode.IsSpace)
		}
		r.side.WriteString(s)
		return nil
	}
	if r.line != nil {
		return nil
	}
	if !r.open {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
	}
	return r.write(s)
}

func (r *markupRenderer) start(tag string, attrs map[string]string, selfClosing bool) error {
	cur := r.top()
	switch tag {
	case "receipt":
		r.stack = r.stack[:1]
		return r.dev.SetStyle(r.top())
	case "div", "p":
		if err := r.newline(); err != nil {
			return err
		}
		style := cur
		style.Align = alignOf(attrs, cur.Align)
		if selfClosing {
			return nil
		}
		return r.push(tag, style)
	case "h1", "h2", "h3":
		if err := r.newline(); err != nil {
			return err
		}
		style := cur
		style.Bold = true
		switch tag {
		case "h1":
			style.Height, style.Width = 2, 2
		case "h2":
			style.Height = 2
		}
		return r.push(tag, style)
	case "b", "strong", "em":
		style := cur
		style.Bold = true
		return r.push(tag, style)
	case "br":
		return r.write("\n")
	case "hr":
		if err := r.newline(); err != nil {
			return err
		}
		return r.write(strings.Repeat("-", r.columns) + "\n")
	case "line":
		if err := r.newline(); err != nil {
			return err
		}
		r.line = &markupLine{
			ratio:  floatAttr(attrs, "ratio", 0.5),
			indent: int(floatAttr(attrs, "indent", 0)),
		}
	case "left":
		if r.line != nil {
			r.side = &r.line.left
		}
	case "right":
		if r.line != nil {
			r.side = &r.line.right
		}
	case "img":
		if err := r.newline(); err != nil {
			return err
		}
		if src := attrs["src"]; src != "" {
			return r.dev.PrintBase64Image(src)
		}
	case "cut":
		if err := r.newline(); err != nil {
			return err
		}
		return r.dev.Cut()
	case "cashdraw":
		if err := r.dev.CashDraw(DrawerPin2); err != nil {
			return err
		}
		return r.dev.CashDraw(DrawerPin5)
	}
	return nil
}

func (r *markupRenderer) end(tag string) error {
	switch tag {
	case "div", "p", "h1", "h2", "h3":
		if err := r.newline(); err != nil {
			return err
		}
		return r.pop(tag)
	case "b", "strong", "em":
		return r.pop(tag)
	case "left", "right":
		r.side = nil
	case "line":
		if r.line == nil {
			return nil
		}
		l := r.line
		r.line, r.side = nil, nil
		return r.write(layout.LayoutLine(
			strings.TrimSpace(l.left.String()),
			strings.TrimSpace(l.right.String()),
			r.columns, l.ratio, l.indent))
	}
	return nil
}

func alignOf(attrs map[string]string, fallback layout.Align) layout.Align {
	switch strings.ToLower(attrs["align"]) {
	case "left":
		return layout.AlignLeft
	case "center":
		return layout.AlignCenter
	case "right":
		return layout.AlignRight
	}
	return fallback
}

func floatAttr(attrs map[string]string, key string, fallback float64) float64 {
	v, ok := attrs[key]
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// collapseSpace folds whitespace runs into a single space
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, c := range s {
		if unicode.IsSpace(c) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(c)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}
