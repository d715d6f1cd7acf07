package export

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"LiveAnnotate/internal/render"
)

// PNG encodes a rendered frame, transparency included.
func PNG(w io.Writer, f render.Frame) error {
	if f.Image == nil {
		return ErrNoSurface
	}
	if err := gg.NewContextForRGBA(f.Image).EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
