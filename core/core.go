// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core implements the frame lifecycle of the engine: the
// presentation chain, per-frame synchronization and the renderer
// that sequences recording, submission and presentation.
package core

import (
	"errors"

	"github.com/devblok/korufx/gfx"
)

// Surface describes the window the renderer presents to.
type Surface interface {

	// DrawableSize returns the current size of the drawable area.
	// Either dimension is zero while the window is minimized.
	DrawableSize() gfx.Extent2D

	// WasResized reports whether the window was resized since
	// the flag was last cleared.
	WasResized() bool

	// ClearResized resets the resize flag.
	ClearResized()

	// WaitEvents blocks until the window system delivers an event.
	// The renderer keeps waiting through close requests, a minimized
	// wait ends only when the size becomes usable or the process exits.
	WaitEvents()
}

// Drawable records draw commands for a frame. Slot is the frame slot
// index in [0, FramesInFlight) and may be used to select per-frame
// resources such as uniform buffers.
type Drawable interface {
	Draw(cmd gfx.CommandBuffer, slot int)
}

// DrawableFunc adapts a function to the Drawable interface.
type DrawableFunc func(cmd gfx.CommandBuffer, slot int)

// Draw implements interface
func (f DrawableFunc) Draw(cmd gfx.CommandBuffer, slot int) {
	f(cmd, slot)
}

// waitForDrawable blocks until the surface reports a usable size.
func waitForDrawable(s Surface) gfx.Extent2D {
	extent := s.DrawableSize()
	for extent.Degenerate() {
		s.WaitEvents()
		extent = s.DrawableSize()
	}
	return extent
}

// buildChain creates a chain for the surface's current size. A zero
// extent from either the surface or the device means the window is
// minimized, the chain is built once window events restore it.
func buildChain(device gfx.Device, surface Surface, cfg RendererConfiguration, previous *Chain) (*Chain, error) {
	for {
		chain, err := NewChain(device, waitForDrawable(surface), cfg, previous)
		if !errors.Is(err, ErrDegenerateExtent) {
			return chain, err
		}
		surface.WaitEvents()
	}
}
