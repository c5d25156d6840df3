package recorder

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"sort"

	"github.com/nfnt/resize"
)

// GIFOptions configures encoding.
type GIFOptions struct {
	FPS      int
	MaxWidth uint
}

// WriteGIF scales frames to MaxWidth, quantizes them against a palette
// built from the first frame and writes a looping GIF.
func WriteGIF(frames []image.Image, path string, opts GIFOptions) (int64, error) {
	if len(frames) == 0 {
		return 0, nil
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 2
	}
	delay := 100 / fps

	bounds := frames[0].Bounds()
	width := opts.MaxWidth
	if width == 0 {
		width = 800
	}
	if w := uint(bounds.Dx()); w < width {
		width = w
	}
	height := uint(float64(width) * float64(bounds.Dy()) / float64(bounds.Dx()))

	g := &gif.GIF{
		Image: make([]*image.Paletted, len(frames)),
		Delay: make([]int, len(frames)),
	}
	palette := buildPalette(frames[0])
	for i, frame := range frames {
		scaled := resize.Resize(width, height, frame, resize.Lanczos3)
		p := image.NewPaletted(scaled.Bounds(), palette)
		draw.FloydSteinberg.Draw(p, scaled.Bounds(), scaled, scaled.Bounds().Min)
		g.Image[i] = p
		g.Delay[i] = delay
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// buildPalette keeps the most frequent colors of a sampled frame, always
// including the two mark colors so pass/fail borders survive quantization.
func buildPalette(img image.Image) color.Palette {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)
	const step = 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			counts[color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}]++
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	ranked := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		ranked = append(ranked, colorCount{c, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		a, b := ranked[i].c, ranked[j].c
		return uint32(a.R)<<24|uint32(a.G)<<16|uint32(a.B)<<8|uint32(a.A) <
			uint32(b.R)<<24|uint32(b.G)<<16|uint32(b.B)<<8|uint32(b.A)
	})

	palette := color.Palette{color.RGBA{0, 0, 0, 0}, passColor, failColor}
	for _, cc := range ranked {
		if len(palette) == 256 {
			break
		}
		if cc.c == passColor || cc.c == failColor {
			continue
		}
		palette = append(palette, cc.c)
	}
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}
