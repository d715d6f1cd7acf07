package render

import (
	"image"
)

// eraseWith clears dst wherever mask has coverage, the way a
// destination-out composite does. Both images have premultiplied alpha so
// every channel scales by the same factor.
func eraseWith(dst, mask *image.RGBA) {
	b := dst.Bounds().Intersect(mask.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := mask.Pix[mask.PixOffset(x, y)+3]
			if a == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			keep := 255 - uint32(a)
			for c := range 4 {
				dst.Pix[i+c] = uint8(uint32(dst.Pix[i+c]) * keep / 255)
			}
		}
	}
}
