// Package recorder turns state machine checkpoints into an animated GIF:
// each checkpoint captures a screenshot, stamps it with a pass/fail mark
// and holds it for a few frames.
package recorder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/element"
)

var _ element.Snapshotter = (*Recorder)(nil)

// Options configures a Recorder.
type Options struct {
	FPS      int
	MaxWidth uint
	// Hold is the number of frames each checkpoint stays on screen.
	Hold   int
	Logger *slog.Logger
}

// Frame is one captured checkpoint.
type Frame struct {
	Label  string
	Failed bool
	Image  image.Image
}

// Recorder collects checkpoint frames. It is safe for concurrent use.
type Recorder struct {
	shot driver.Screenshotter
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	frames []Frame
}

func New(shot driver.Screenshotter, opts Options) *Recorder {
	if opts.FPS <= 0 {
		opts.FPS = 2
	}
	if opts.Hold <= 0 {
		opts.Hold = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{shot: shot, opts: opts, log: log}
}

// Snapshot implements element.Snapshotter. A capture failure is logged and
// the checkpoint skipped; recording never fails the run.
func (r *Recorder) Snapshot(ctx context.Context, label string, failed bool) {
	img, err := r.capture(ctx)
	if err != nil {
		r.log.Warn("recorder: capture failed", "label", label, "error", err)
		return
	}
	r.mu.Lock()
	r.frames = append(r.frames, Frame{Label: label, Failed: failed, Image: Mark(img, failed)})
	r.mu.Unlock()
	r.log.Debug("recorder: captured", "label", label, "failed", failed)
}

func (r *Recorder) capture(ctx context.Context) (image.Image, error) {
	data, err := r.shot.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Frames returns a copy of the captured checkpoints.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Save writes the recording to path and returns the file size. With no
// frames captured it writes nothing and returns 0.
func (r *Recorder) Save(path string) (int64, error) {
	frames := r.Frames()
	if len(frames) == 0 {
		return 0, nil
	}
	images := make([]image.Image, 0, len(frames)*r.opts.Hold)
	for _, f := range frames {
		for i := 0; i < r.opts.Hold; i++ {
			images = append(images, f.Image)
		}
	}
	size, err := WriteGIF(images, path, GIFOptions{FPS: r.opts.FPS, MaxWidth: r.opts.MaxWidth})
	if err != nil {
		return 0, fmt.Errorf("recorder: %w", err)
	}
	r.log.Info("recorder: saved", "path", path, "frames", len(images), "bytes", size)
	return size, nil
}
