package render

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"LiveAnnotate/internal/state"
)

const (
	// DefaultFontPx is used when a text action carries no font size.
	DefaultFontPx = 24
	// MaxFontPx bounds the face size handed out by FontCache.
	MaxFontPx = 512
	// LineHeight is the line advance as a multiple of the font size.
	LineHeight = 1.2
)

// FontCache hands out Go Regular faces by pixel size.
type FontCache struct {
	mu    sync.Mutex
	font  *truetype.Font
	faces map[int]font.Face
}

// NewFontCache parses the embedded Go Regular font.
func NewFontCache() (*FontCache, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontCache{font: f, faces: make(map[int]font.Face)}, nil
}

// Face returns a face for px, rounded to a whole pixel and clamped to
// [1, MaxFontPx].
func (c *FontCache) Face(px float64) font.Face {
	size := 1
	if state.Finite(px) {
		size = int(math.Round(min(max(px, 1), MaxFontPx)))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if face, ok := c.faces[size]; ok {
		return face
	}
	face := truetype.NewFace(c.font, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	c.faces[size] = face
	return face
}
