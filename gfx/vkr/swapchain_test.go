// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

func TestPickSurfaceFormat(t *testing.T) {
	c := qt.New(t)

	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	c.Assert(pickSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}).Format, qt.Equals, vk.FormatB8g8r8a8Srgb)
	c.Assert(pickSurfaceFormat([]vk.SurfaceFormat{unorm}).Format, qt.Equals, vk.FormatB8g8r8a8Unorm)
}

func TestPickPresentMode(t *testing.T) {
	c := qt.New(t)

	c.Assert(pickPresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}), qt.Equals, vk.PresentModeMailbox)
	c.Assert(pickPresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}), qt.Equals, vk.PresentModeFifo)
	c.Assert(pickPresentMode(nil), qt.Equals, vk.PresentModeFifo)
}

func TestPickCompositeAlpha(t *testing.T) {
	c := qt.New(t)

	supported := vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit | vk.CompositeAlphaPreMultipliedBit)
	c.Assert(pickCompositeAlpha(supported), qt.Equals, vk.CompositeAlphaPreMultipliedBit)
	c.Assert(pickCompositeAlpha(0), qt.Equals, vk.CompositeAlphaOpaqueBit)
}

func TestSwapchainExtent(t *testing.T) {
	c := qt.New(t)

	var caps vk.SurfaceCapabilities
	caps.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	c.Assert(swapchainExtent(caps, gfx.Extent2D{Width: 800, Height: 600}), qt.Equals, gfx.Extent2D{Width: 1024, Height: 768})

	caps.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	caps.MinImageExtent = vk.Extent2D{Width: 100, Height: 100}
	caps.MaxImageExtent = vk.Extent2D{Width: 1920, Height: 1080}
	c.Assert(swapchainExtent(caps, gfx.Extent2D{Width: 800, Height: 600}), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(swapchainExtent(caps, gfx.Extent2D{Width: 4000, Height: 50}), qt.Equals, gfx.Extent2D{Width: 1920, Height: 100})
}

func TestSwapchainImageCount(t *testing.T) {
	c := qt.New(t)

	var caps vk.SurfaceCapabilities
	caps.MinImageCount = 2
	c.Assert(swapchainImageCount(caps, 3), qt.Equals, uint32(3))
	c.Assert(swapchainImageCount(caps, 1), qt.Equals, uint32(2))

	caps.MaxImageCount = 3
	c.Assert(swapchainImageCount(caps, 8), qt.Equals, uint32(3))
}
