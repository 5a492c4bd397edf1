// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/korufx/gfx"
)

// FrameState is the position of a Renderer within a frame.
type FrameState int

// Frame states
const (
	StateIdle FrameState = iota
	StateRecording
	StateSubmitted
)

func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Frame is the handle of a frame being recorded. It is valid from
// BeginFrame until the matching EndFrame.
type Frame struct {
	// Slot is the frame slot index in [0, FramesInFlight).
	Slot int

	// Image is the index of the acquired presentable image.
	Image uint32

	// Commands is the command buffer the frame is recorded into.
	Commands gfx.CommandBuffer
}

// Stats counts what the renderer has done so far.
type Stats struct {
	Frames   uint64
	Skipped  uint64
	Rebuilds uint64
}

// NewRenderer creates a renderer presenting to surface. It blocks until
// the surface has a usable size.
func NewRenderer(device gfx.Device, surface Surface, cfg RendererConfiguration) (*Renderer, error) {
	cfg = cfg.normalize()

	r := &Renderer{
		device:        device,
		surface:       surface,
		configuration: cfg,
		clearValues:   cfg.clearValues(),
		log:           log.WithField("component", "renderer"),
	}

	chain, err := buildChain(device, surface, cfg, nil)
	if err != nil {
		return nil, err
	}
	r.chain = chain
	r.images = newImageTable(chain.ImageCount())

	sync, err := NewSynchronizer(device, cfg.FramesInFlight, cfg.FenceTimeout)
	if err != nil {
		chain.Release()
		return nil, err
	}
	r.sync = sync

	r.log.WithFields(log.Fields{
		"extent": chain.Extent(),
		"images": chain.ImageCount(),
		"color":  chain.ColorFormat(),
		"depth":  chain.DepthFormat(),
		"slots":  sync.Count(),
	}).Info("renderer initialised")
	return r, nil
}

// Renderer sequences the frames: it acquires presentable images, hands
// out command buffers for recording, submits and presents them, and
// rebuilds the presentation chain whenever the surface changes.
// A Renderer must be used from one goroutine.
type Renderer struct {
	device        gfx.Device
	surface       Surface
	configuration RendererConfiguration
	clearValues   []gfx.ClearValue

	chain  *Chain
	sync   *Synchronizer
	images imageTable

	state    FrameState
	frame    *Frame
	passOpen bool
	stale    bool
	failed   error

	stats Stats
	log   *log.Entry
}

// BeginFrame waits for the current frame slot to retire and acquires
// the next presentable image. It returns a nil Frame and no error when
// the chain had to be rebuilt, the caller should try again on the next
// iteration of its loop.
func (r *Renderer) BeginFrame() (*Frame, error) {
	if r.failed != nil {
		return nil, r.failed
	}
	if r.state != StateIdle {
		violate("BeginFrame", r.state, "frame already in progress")
	}

	slot := r.sync.Current()
	if err := r.sync.WaitForSlotFree(slot); err != nil {
		return nil, r.fail(err)
	}

	imageAvailable, _ := r.sync.Signals(slot)
	image, status, err := r.chain.AcquireNextImage(imageAvailable)
	if err != nil {
		return nil, r.fail(err)
	}

	switch status {
	case gfx.StatusOutOfDate:
		r.stats.Skipped++
		r.log.WithField("slot", slot).Debug("acquire reported out of date chain, skipping frame")
		if err := r.rebuild("acquire out of date"); err != nil {
			return nil, r.fail(err)
		}
		return nil, nil
	case gfx.StatusSuboptimal:
		r.stale = true
	}

	if err := r.images.wait(image, r.configuration.FenceTimeout); err != nil {
		return nil, r.fail(err)
	}

	cmd := r.sync.CommandBuffer(slot)
	if err := cmd.Begin(); err != nil {
		return nil, r.fail(deviceError("commandBuffer.Begin()", err))
	}

	r.frame = &Frame{
		Slot:     slot,
		Image:    image,
		Commands: cmd,
	}
	r.state = StateRecording
	return r.frame, nil
}

// BeginPass begins the chain's render pass on f and sets the viewport
// and scissor to the chain's extent.
func (r *Renderer) BeginPass(f *Frame) {
	r.checkFrame("BeginPass", f)
	if r.passOpen {
		violate("BeginPass", r.state, "render pass already begun")
	}
	beginPass(f.Commands, r.chain, f.Image, r.clearValues)
	r.passOpen = true
}

// Draw lets every drawable record its commands into f.
func (r *Renderer) Draw(f *Frame, drawables ...Drawable) {
	r.checkFrame("Draw", f)
	if !r.passOpen {
		violate("Draw", r.state, "render pass not begun")
	}
	for _, d := range drawables {
		d.Draw(f.Commands, f.Slot)
	}
}

// EndPass ends the render pass begun on f.
func (r *Renderer) EndPass(f *Frame) {
	r.checkFrame("EndPass", f)
	if !r.passOpen {
		violate("EndPass", r.state, "render pass not begun")
	}
	endPass(f.Commands)
	r.passOpen = false
}

// EndFrame submits the recorded frame, presents it and moves on to the
// next frame slot. The chain is rebuilt when presentation reports it
// stale or the surface was resized.
func (r *Renderer) EndFrame() error {
	if r.state != StateRecording {
		violate("EndFrame", r.state, "no frame in progress")
	}
	if r.passOpen {
		violate("EndFrame", r.state, "render pass not ended")
	}

	f := r.frame
	if err := f.Commands.End(); err != nil {
		return r.fail(deviceError("commandBuffer.End()", err))
	}

	fence := r.sync.Fence(f.Slot)
	if err := fence.Reset(); err != nil {
		return r.fail(deviceError("fence.Reset()", err))
	}

	imageAvailable, renderFinished := r.sync.Signals(f.Slot)
	if err := r.device.Submit(f.Commands, imageAvailable, renderFinished, fence); err != nil {
		return r.fail(deviceError("device.Submit()", err))
	}
	r.images.set(f.Image, fence)
	r.state = StateSubmitted

	status, err := r.chain.Present(f.Image, renderFinished)
	if err != nil {
		return r.fail(err)
	}

	resized := r.surface.WasResized()
	if status != gfx.StatusOK || r.stale || resized {
		r.surface.ClearResized()
		reason := "acquire suboptimal"
		switch {
		case resized:
			reason = "surface resized"
		case status != gfx.StatusOK:
			reason = "present " + status.String()
		}
		if err := r.rebuild(reason); err != nil {
			return r.fail(err)
		}
	}

	r.sync.Advance()
	r.stats.Frames++
	r.frame = nil
	r.state = StateIdle
	return nil
}

func (r *Renderer) checkFrame(op string, f *Frame) {
	if r.state != StateRecording {
		violate(op, r.state, "no frame in progress")
	}
	if f == nil || f != r.frame {
		violate(op, r.state, "frame handle belongs to a different frame")
	}
}

// rebuild replaces the presentation chain with one matching the
// surface's current size.
func (r *Renderer) rebuild(reason string) error {
	// Image views of the old chain may still be referenced
	// by any submitted command buffer.
	if err := r.device.WaitIdle(); err != nil {
		return deviceError("device.WaitIdle()", err)
	}

	old := r.chain
	chain, err := buildChain(r.device, r.surface, r.configuration, old)
	if err != nil {
		return err
	}
	old.Release()

	r.chain = chain
	r.images.reset(chain.ImageCount())
	r.stale = false
	r.stats.Rebuilds++

	r.log.WithFields(log.Fields{
		"reason": reason,
		"extent": chain.Extent(),
		"images": chain.ImageCount(),
	}).Info("presentation chain rebuilt")
	return nil
}

func (r *Renderer) fail(err error) error {
	r.failed = err
	r.log.WithError(err).Error("graphics device failure")
	return err
}

// CurrentFrameSlot returns the slot index of the frame being recorded,
// or of the next frame when idle.
func (r *Renderer) CurrentFrameSlot() int {
	return r.sync.Current()
}

// IsFrameInProgress reports whether a frame was begun and not yet ended.
func (r *Renderer) IsFrameInProgress() bool {
	return r.state != StateIdle
}

// State returns the renderer's position within the current frame.
func (r *Renderer) State() FrameState {
	return r.state
}

// Chain returns the current presentation chain. It is replaced on
// rebuild, so it should not be retained across frames.
func (r *Renderer) Chain() *Chain {
	return r.chain
}

// Stats returns frame counters.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Release waits for the device to finish all work and destroys the
// frame slots and the presentation chain.
func (r *Renderer) Release() {
	if err := r.device.WaitIdle(); err != nil {
		r.log.WithError(err).Warn("device did not idle before release")
	}
	if r.sync != nil {
		r.sync.Release()
		r.sync = nil
	}
	if r.chain != nil {
		r.chain.Release()
		r.chain = nil
	}
}
