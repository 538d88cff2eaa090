package preview

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// inkColumns returns the leftmost and rightmost columns holding a dark pixel
func inkColumns(img image.Image) (int, int, bool) {
	b := img.Bounds()
	minX, maxX, found := b.Max.X, b.Min.X-1, false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r < 0x8000 {
				found = true
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
			}
		}
	}
	return minX, maxX, found
}

func TestRenderPaperSize(t *testing.T) {
	img, err := Render([]layout.Op{layout.TextOp{Text: "Hello\n"}}, Options{Columns: 40, Dots: 576})
	require.NoError(t, err)

	assert.Equal(t, 576+2*margin, img.Bounds().Dx())
	assert.Less(t, img.Bounds().Dy(), initialHeight)

	_, _, inked := inkColumns(img)
	assert.True(t, inked)
}

func TestRenderAlignment(t *testing.T) {
	left, err := Render([]layout.Op{layout.TextOp{Text: "W\n"}}, Options{})
	require.NoError(t, err)
	minLeft, _, _ := inkColumns(left)
	assert.Less(t, minLeft, margin+20)

	right, err := Render([]layout.Op{
		layout.StyleOp{Style: layout.Style{Align: layout.AlignRight}},
		layout.TextOp{Text: "W\n"},
	}, Options{})
	require.NoError(t, err)
	_, maxRight, _ := inkColumns(right)
	assert.Greater(t, maxRight, margin+576-20)

	center, err := Render([]layout.Op{
		layout.StyleOp{Style: layout.Style{Align: layout.AlignCenter}},
		layout.TextOp{Text: "W\n"},
	}, Options{})
	require.NoError(t, err)
	minCenter, maxCenter, _ := inkColumns(center)
	mid := margin + 576/2
	assert.Less(t, minCenter, mid)
	assert.Greater(t, maxCenter, mid-20)
}

func TestRenderDoubleHeightIsTaller(t *testing.T) {
	normal, err := Render([]layout.Op{layout.TextOp{Text: "Total\n"}}, Options{})
	require.NoError(t, err)

	tall, err := Render([]layout.Op{
		layout.StyleOp{Style: layout.Style{Height: 2, Width: 2, Bold: true}},
		layout.TextOp{Text: "Total\n"},
	}, Options{})
	require.NoError(t, err)

	assert.Greater(t, tall.Bounds().Dy(), normal.Bounds().Dy())
}

func TestRenderGrowsPaper(t *testing.T) {
	var ops []layout.Op
	for i := 0; i < 100; i++ {
		ops = append(ops, layout.TextOp{Text: "line\n"})
	}
	ops = append(ops, layout.CutOp{})

	img, err := Render(ops, Options{})
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dy(), initialHeight)
}

func TestRenderUnterminatedLine(t *testing.T) {
	img, err := Render([]layout.Op{layout.TextOp{Text: "no newline"}}, Options{})
	require.NoError(t, err)

	_, _, inked := inkColumns(img)
	assert.True(t, inked)
}

func TestRenderImageScaledToPaper(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 1200; x++ {
			src.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Render([]layout.Op{
		layout.ImageOp{Base64: base64.StdEncoding.EncodeToString(buf.Bytes())},
	}, Options{Dots: 384})
	require.NoError(t, err)

	minX, maxX, inked := inkColumns(img)
	require.True(t, inked)
	assert.Equal(t, margin, minX)
	assert.Equal(t, margin+384-1, maxX)
}

func TestRenderBadImage(t *testing.T) {
	_, err := Render([]layout.Op{layout.ImageOp{Base64: "!!!"}}, Options{})
	assert.Error(t, err)
}

func TestRenderReceiptAndStatusTicket(t *testing.T) {
	r := layout.Receipt{
		OrderLines:   []layout.OrderLine{{ProductName: "Coffee", Quantity: 1, Price: 2.5, PriceDisplay: 2.5}},
		Subtotal:     2.5,
		TotalWithTax: 2.5,
		Precision:    layout.Precision{Price: 2, Money: 2, Quantity: 3},
		Barcode:      "0001",
	}
	_, err := Render(layout.Render(r, layout.Options{}), Options{})
	require.NoError(t, err)

	_, err = Render(layout.StatusTicket("10.0.0.2", 8069), Options{})
	require.NoError(t, err)
}

func TestRenderDocument(t *testing.T) {
	img, err := RenderDocument(`<receipt><h1>Shop</h1><hr/><cashdraw/><cut/></receipt>`, Options{})
	require.NoError(t, err)

	_, _, inked := inkColumns(img)
	assert.True(t, inked)
}

func TestEncodePNG(t *testing.T) {
	r := New(Options{})
	require.NoError(t, r.Text("Thanks\n"))

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, r.width, decoded.Bounds().Dx())
}
