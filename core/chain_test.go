// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/gfx/gfxtest"
)

var (
	extent800x600 = gfx.Extent2D{Width: 800, Height: 600}
	extent400x300 = gfx.Extent2D{Width: 400, Height: 300}
)

func TestNewChain(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	chain, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)
	defer chain.Release()

	c.Assert(chain.ImageCount(), qt.Equals, 3)
	c.Assert(chain.Extent(), qt.Equals, extent800x600)
	c.Assert(chain.ColorFormat(), qt.Equals, gfx.FormatB8G8R8A8Srgb)
	c.Assert(chain.DepthFormat(), qt.Equals, gfx.FormatD32Sfloat)
	c.Assert(device.Swapchains, qt.HasLen, 1)
	c.Assert(device.Swapchains[0].Config.MinImageCount, qt.Equals, uint32(core.DefaultSwapchainSize))
	c.Assert(device.Swapchains[0].Config.Old, qt.IsNil)

	for idx := uint32(0); idx < 3; idx++ {
		fb := chain.Framebuffer(idx).(*gfxtest.Framebuffer)
		c.Assert(fb.Extent, qt.Equals, extent800x600)
		c.Assert(fb.Pass, qt.Equals, chain.RenderPass())
		c.Assert(fb.Attachments, qt.HasLen, 2)

		color := fb.Attachments[0].(*gfxtest.ImageView)
		c.Assert(color.Format, qt.Equals, gfx.FormatB8G8R8A8Srgb)
		c.Assert(color.Aspect, qt.Equals, gfx.AspectColor)

		depth := fb.Attachments[1].(*gfxtest.ImageView)
		c.Assert(depth.Format, qt.Equals, gfx.FormatD32Sfloat)
		c.Assert(depth.Aspect, qt.Equals, gfx.AspectDepth)
	}

	pass := chain.RenderPass().(*gfxtest.RenderPass)
	c.Assert(pass.Color, qt.Equals, gfx.FormatB8G8R8A8Srgb)
	c.Assert(pass.Depth, qt.Equals, gfx.FormatD32Sfloat)
}

func TestNewChainDepthFallback(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Unorm)
	device.DepthFormats = []gfx.Format{gfx.FormatD16Unorm, gfx.FormatD24UnormS8Uint}

	chain, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)
	defer chain.Release()
	c.Assert(chain.DepthFormat(), qt.Equals, gfx.FormatD24UnormS8Uint)

	device.DepthFormats = []gfx.Format{gfx.FormatD16Unorm}
	_, err = core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(errors.Is(err, core.ErrNoDepthFormat), qt.IsTrue)
}

func TestNewChainClampsExtent(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb)
	device.MaxExtent = extent400x300

	chain, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)
	defer chain.Release()
	c.Assert(chain.Extent(), qt.Equals, extent400x300)
}

func TestNewChainRejects(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	_, err := core.NewChain(device, gfx.Extent2D{Width: 0, Height: 600}, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.Equals, core.ErrDegenerateExtent)

	device.ImageCount = 1
	_, err = core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(errors.Is(err, core.ErrTooFewImages), qt.IsTrue)
	c.Assert(device.Live, qt.Equals, 0)

	device.ImageCount = 3
	device.FailSwapchain = true
	_, err = core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	var de *core.DeviceError
	c.Assert(errors.As(err, &de), qt.IsTrue)
	c.Assert(de.Op, qt.Equals, "device.NewSwapchain()")
	c.Assert(errors.Is(err, gfxtest.ErrInjected), qt.IsTrue)
}

func TestChainRebuild(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	first, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)
	live := device.Live

	second, err := core.NewChain(device, extent400x300, core.RendererConfiguration{}, first)
	c.Assert(err, qt.IsNil)
	c.Assert(device.Swapchains[1].Config.Old, qt.Equals, gfx.Swapchain(device.Swapchains[0]))
	first.Release()

	c.Assert(second.Extent(), qt.Equals, extent400x300)
	c.Assert(second.CompatibleWith(first), qt.IsTrue)
	c.Assert(second.ColorFormat(), qt.Equals, gfx.FormatB8G8R8A8Srgb)
	c.Assert(second.DepthFormat(), qt.Equals, gfx.FormatD32Sfloat)
	c.Assert(device.Swapchains[0].Released(), qt.IsTrue)

	third, err := core.NewChain(device, extent400x300, core.RendererConfiguration{}, second)
	c.Assert(err, qt.IsNil)
	second.Release()

	c.Assert(third.Extent(), qt.Equals, second.Extent())
	c.Assert(third.ImageCount(), qt.Equals, second.ImageCount())
	c.Assert(third.CompatibleWith(second), qt.IsTrue)
	c.Assert(device.Live, qt.Equals, live)

	third.Release()
	c.Assert(device.Live, qt.Equals, 0)
}

func TestChainRebuildFormatChanged(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	first, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)
	defer first.Release()
	live := device.Live

	device.Format = gfx.FormatB8G8R8A8Unorm
	second, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, first)
	c.Assert(second, qt.IsNil)

	var de *core.DeviceError
	c.Assert(errors.As(err, &de), qt.IsTrue)
	c.Assert(errors.Is(err, core.ErrFormatChanged), qt.IsTrue)
	c.Assert(device.Live, qt.Equals, live)
}

func TestChainReleaseTwice(t *testing.T) {
	c := qt.New(t)

	device := gfxtest.NewDevice(2, gfx.FormatB8G8R8A8Srgb)
	chain, err := core.NewChain(device, extent800x600, core.RendererConfiguration{}, nil)
	c.Assert(err, qt.IsNil)

	chain.Release()
	chain.Release()
	c.Assert(device.Live, qt.Equals, 0)
}
