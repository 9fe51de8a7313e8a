package qr

import qrcode "github.com/skip2/go-qrcode"

const (
	defaultBoxSize = 10
	defaultBorder  = 4

	// version-3 symbol width in modules, used to translate the per-module
	// box size into an output pixel size
	baseModules = 29
)

// Generator renders QR code PNGs for short URLs.
type Generator struct {
	boxSize int
	border  int
}

func NewGenerator(boxSize, border int) *Generator {
	if boxSize <= 0 {
		boxSize = defaultBoxSize
	}
	if border < 0 {
		border = defaultBorder
	}
	return &Generator{boxSize: boxSize, border: border}
}

// Render encodes content as a PNG image. The quiet-zone border is folded
// into the overall pixel size.
func (g *Generator) Render(content string) ([]byte, error) {
	size := (baseModules + 2*g.border) * g.boxSize
	return qrcode.Encode(content, qrcode.Medium, size)
}
