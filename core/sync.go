// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"time"

	"github.com/devblok/korufx/gfx"
)

// frameSlot holds everything one in-flight frame needs.
type frameSlot struct {
	commandBuffer  gfx.CommandBuffer
	imageAvailable gfx.Semaphore
	renderFinished gfx.Semaphore
	inFlight       gfx.Fence
}

// NewSynchronizer creates count frame slots. Slot fences start signaled
// so the first wait on each slot returns immediately.
func NewSynchronizer(device gfx.Device, count int, timeout time.Duration) (*Synchronizer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("frame slot count must be positive, got %d", count)
	}

	s := &Synchronizer{
		device:  device,
		timeout: timeout,
	}

	commandBuffers, err := device.AllocateCommandBuffers(count)
	if err != nil {
		return nil, deviceError("device.AllocateCommandBuffers()", err)
	}
	s.commandBuffers = commandBuffers

	for idx := 0; idx < count; idx++ {
		slot := frameSlot{commandBuffer: commandBuffers[idx]}
		if slot.imageAvailable, err = device.NewSemaphore(); err != nil {
			s.Release()
			return nil, deviceError("device.NewSemaphore()", err)
		}
		if slot.renderFinished, err = device.NewSemaphore(); err != nil {
			slot.imageAvailable.Release()
			s.Release()
			return nil, deviceError("device.NewSemaphore()", err)
		}
		if slot.inFlight, err = device.NewFence(true); err != nil {
			slot.imageAvailable.Release()
			slot.renderFinished.Release()
			s.Release()
			return nil, deviceError("device.NewFence()", err)
		}
		s.slots = append(s.slots, slot)
	}
	return s, nil
}

// Synchronizer owns the frame slots and rotates between them,
// bounding how far the CPU may record ahead of the GPU.
type Synchronizer struct {
	device  gfx.Device
	timeout time.Duration

	slots          []frameSlot
	commandBuffers []gfx.CommandBuffer
	current        int
}

// Count returns the number of frame slots.
func (s *Synchronizer) Count() int {
	return len(s.slots)
}

// Current returns the index of the slot the next frame is recorded into.
func (s *Synchronizer) Current() int {
	return s.current
}

// WaitForSlotFree blocks until the work last submitted from slot index
// has retired on the GPU.
func (s *Synchronizer) WaitForSlotFree(index int) error {
	return waitFence(s.slots[index].inFlight, s.timeout)
}

// Signals returns the image-available and render-finished semaphores of slot index.
func (s *Synchronizer) Signals(index int) (imageAvailable, renderFinished gfx.Semaphore) {
	return s.slots[index].imageAvailable, s.slots[index].renderFinished
}

// Fence returns the fence armed by submissions from slot index.
func (s *Synchronizer) Fence(index int) gfx.Fence {
	return s.slots[index].inFlight
}

// CommandBuffer returns the command buffer of slot index.
func (s *Synchronizer) CommandBuffer(index int) gfx.CommandBuffer {
	return s.slots[index].commandBuffer
}

// Advance moves on to the next slot.
func (s *Synchronizer) Advance() {
	s.current = (s.current + 1) % len(s.slots)
}

// Release destroys all slots. No slot may have work in flight.
func (s *Synchronizer) Release() {
	for _, slot := range s.slots {
		slot.imageAvailable.Release()
		slot.renderFinished.Release()
		slot.inFlight.Release()
	}
	s.slots = nil

	if len(s.commandBuffers) > 0 {
		s.device.FreeCommandBuffers(s.commandBuffers)
		s.commandBuffers = nil
	}
}

// waitFence waits on f in steps of timeout until it signals.
func waitFence(f gfx.Fence, timeout time.Duration) error {
	for {
		signaled, err := f.Wait(timeout)
		if err != nil {
			return deviceError("fence.Wait()", err)
		}
		if signaled {
			return nil
		}
	}
}

// imageTable remembers, per presentable image, the fence of the
// last submission that rendered into it.
type imageTable struct {
	fences []gfx.Fence
}

func newImageTable(count int) imageTable {
	return imageTable{fences: make([]gfx.Fence, count)}
}

// wait blocks until the last submission against image index retired.
func (t *imageTable) wait(index uint32, timeout time.Duration) error {
	if f := t.fences[index]; f != nil {
		return waitFence(f, timeout)
	}
	return nil
}

func (t *imageTable) set(index uint32, f gfx.Fence) {
	t.fences[index] = f
}

// reset forgets all entries and resizes the table to count images.
func (t *imageTable) reset(count int) {
	t.fences = make([]gfx.Fence, count)
}
