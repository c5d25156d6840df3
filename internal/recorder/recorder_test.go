package recorder

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/dashdriver/internal/driver/memdom"
)

type brokenShot struct{}

func (brokenShot) Screenshot(context.Context) ([]byte, error) { return nil, errors.New("tab crashed") }

type garbageShot struct{}

func (garbageShot) Screenshot(context.Context) ([]byte, error) { return []byte("not an image"), nil }

func TestSnapshotAndSave(t *testing.T) {
	doc := memdom.MustParse(`<html><body><p>hello</p></body></html>`)
	r := New(doc, Options{FPS: 4, Hold: 3, MaxWidth: 32})

	ctx := context.Background()
	r.Snapshot(ctx, "edit", false)
	r.Snapshot(ctx, "save", true)

	frames := r.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "edit", frames[0].Label)
	assert.False(t, frames[0].Failed)
	assert.True(t, frames[1].Failed)

	path := filepath.Join(t.TempDir(), "run.gif")
	size, err := r.Save(path)
	require.NoError(t, err)
	assert.Positive(t, size)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 6)
	assert.Equal(t, 25, g.Delay[0])
	assert.Equal(t, 32, g.Image[0].Bounds().Dx())
	assert.Equal(t, 24, g.Image[0].Bounds().Dy())
}

func TestCaptureFailuresAreSkipped(t *testing.T) {
	for _, shot := range []interface {
		Screenshot(context.Context) ([]byte, error)
	}{brokenShot{}, garbageShot{}} {
		r := New(shot, Options{})
		r.Snapshot(context.Background(), "edit", false)
		assert.Empty(t, r.Frames())

		path := filepath.Join(t.TempDir(), "empty.gif")
		size, err := r.Save(path)
		require.NoError(t, err)
		assert.Zero(t, size)
		assert.NoFileExists(t, path)
	}
}

func TestMark(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			src.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	ok := Mark(src, false)
	assert.Equal(t, passColor, ok.RGBAAt(0, 0))
	assert.Equal(t, passColor, ok.RGBAAt(39, 29))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, ok.RGBAAt(20, 15))

	bad := Mark(src, true)
	assert.Equal(t, failColor, bad.RGBAAt(2, 10))
	// The source is not modified.
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, src.RGBAAt(0, 0))
}

func TestPaletteKeepsMarkColors(t *testing.T) {
	p := buildPalette(Mark(image.NewRGBA(image.Rect(0, 0, 16, 16)), false))
	assert.Len(t, p, 256)
	assert.Contains(t, p, color.Color(passColor))
	assert.Contains(t, p, color.Color(failColor))
}

func TestWriteGIFNoFrames(t *testing.T) {
	size, err := WriteGIF(nil, filepath.Join(t.TempDir(), "x.gif"), GIFOptions{})
	require.NoError(t, err)
	assert.Zero(t, size)
}
