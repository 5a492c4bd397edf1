// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/gfx/gfxtest"
)

func TestSynchronizer(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	s, err := NewSynchronizer(device, 3, time.Millisecond)
	c.Assert(err, qt.IsNil)

	c.Assert(s.Count(), qt.Equals, 3)
	c.Assert(s.Current(), qt.Equals, 0)

	seen := map[gfx.Semaphore]bool{}
	for idx := 0; idx < s.Count(); idx++ {
		fence := s.Fence(idx).(*gfxtest.Fence)
		c.Assert(fence.Signaled(), qt.IsTrue)

		imageAvailable, renderFinished := s.Signals(idx)
		c.Assert(imageAvailable, qt.Not(qt.Equals), renderFinished)
		seen[imageAvailable] = true
		seen[renderFinished] = true
		c.Assert(s.CommandBuffer(idx), qt.Not(qt.IsNil))
	}
	c.Assert(seen, qt.HasLen, 6)

	for _, want := range []int{1, 2, 0, 1} {
		s.Advance()
		c.Assert(s.Current(), qt.Equals, want)
	}

	s.Release()
	c.Assert(device.Live, qt.Equals, 0)
}

func TestSynchronizerRejectsZeroSlots(t *testing.T) {
	c := qt.New(t)

	_, err := NewSynchronizer(gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb), 0, time.Millisecond)
	c.Assert(err, qt.ErrorMatches, "frame slot count must be positive, got 0")
}

func TestSynchronizerAllocateFailure(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb)
	device.FailAllocate = true
	_, err := NewSynchronizer(device, 2, time.Millisecond)

	var de *DeviceError
	c.Assert(errors.As(err, &de), qt.IsTrue)
	c.Assert(de.Op, qt.Equals, "device.AllocateCommandBuffers()")
}

func TestWaitForSlotFree(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb)
	device.FencePolls = 3
	s, err := NewSynchronizer(device, 2, time.Millisecond)
	c.Assert(err, qt.IsNil)
	defer s.Release()

	// A fresh slot is free immediately.
	fence := s.Fence(0).(*gfxtest.Fence)
	c.Assert(s.WaitForSlotFree(0), qt.IsNil)
	c.Assert(fence.Waits, qt.Equals, 1)
	c.Assert(fence.NotReady, qt.Equals, 0)

	imageAvailable, renderFinished := s.Signals(0)
	c.Assert(fence.Reset(), qt.IsNil)
	c.Assert(device.Submit(s.CommandBuffer(0), imageAvailable, renderFinished, fence), qt.IsNil)

	c.Assert(s.WaitForSlotFree(0), qt.IsNil)
	c.Assert(fence.NotReady, qt.Equals, 3)
	c.Assert(fence.Waits, qt.Equals, 5)
	c.Assert(fence.Signaled(), qt.IsTrue)
}

func TestImageTable(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb)
	device.FencePolls = 2
	f, err := device.NewFence(false)
	c.Assert(err, qt.IsNil)
	fence := f.(*gfxtest.Fence)

	table := newImageTable(3)
	c.Assert(table.wait(1, time.Millisecond), qt.IsNil)
	c.Assert(fence.Waits, qt.Equals, 0)

	cmds, err := device.AllocateCommandBuffers(1)
	c.Assert(err, qt.IsNil)
	c.Assert(device.Submit(cmds[0], nil, nil, fence), qt.IsNil)

	table.set(1, fence)
	c.Assert(table.fences[1], qt.Equals, f)
	c.Assert(table.wait(1, time.Millisecond), qt.IsNil)
	c.Assert(fence.NotReady, qt.Equals, 2)

	table.reset(4)
	c.Assert(table.fences, qt.HasLen, 4)
	for idx := uint32(0); idx < 4; idx++ {
		c.Assert(table.fences[idx], qt.IsNil)
	}
}
