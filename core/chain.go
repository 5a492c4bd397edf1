// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/korufx/gfx"
)

// NewChain creates a presentation chain sized to extent. When previous is
// given its swapchain is handed to the driver as the one being replaced and
// the formats of the new chain must match it. The previous chain is only
// read, releasing it remains the caller's responsibility.
func NewChain(device gfx.Device, extent gfx.Extent2D, cfg RendererConfiguration, previous *Chain) (*Chain, error) {
	if extent.Degenerate() {
		return nil, ErrDegenerateExtent
	}
	cfg = cfg.normalize()

	actual, err := device.DrawableExtent(extent)
	if err != nil {
		return nil, deviceError("device.DrawableExtent()", err)
	}
	if actual.Degenerate() {
		return nil, ErrDegenerateExtent
	}

	c := &Chain{
		device: device,
		extent: actual,
	}

	scc := gfx.SwapchainConfiguration{
		Extent:        actual,
		MinImageCount: cfg.SwapchainSize,
	}
	if previous != nil {
		scc.Old = previous.swapchain
	}

	if c.swapchain, err = device.NewSwapchain(scc); err != nil {
		return nil, deviceError("device.NewSwapchain()", err)
	}
	c.images = c.swapchain.Images()
	c.colorFormat = c.swapchain.Format()
	c.extent = c.swapchain.Extent()

	if len(c.images) < 2 {
		c.Release()
		return nil, deviceError("core.NewChain()", ErrTooFewImages)
	}

	if c.depthFormat, err = findDepthFormat(device, cfg.DepthFormats); err != nil {
		c.Release()
		return nil, deviceError("core.NewChain()", err)
	}

	if previous != nil && !previous.CompatibleWith(c) {
		err := fmt.Errorf("%w: color %s -> %s, depth %s -> %s", ErrFormatChanged,
			previous.colorFormat, c.colorFormat, previous.depthFormat, c.depthFormat)
		c.Release()
		return nil, deviceError("core.NewChain()", err)
	}

	if err := c.createAttachments(); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// Chain is the presentation chain: the presentable images, their
// views and framebuffers, a shared depth attachment and the render pass
// describing them. Its extent and formats never change, a new Chain is
// built instead.
type Chain struct {
	device    gfx.Device
	swapchain gfx.Swapchain

	extent      gfx.Extent2D
	colorFormat gfx.Format
	depthFormat gfx.Format

	images []gfx.Image
	views  []gfx.ImageView

	depthImage gfx.Image
	depthView  gfx.ImageView

	renderPass   gfx.RenderPass
	framebuffers []gfx.Framebuffer
}

func findDepthFormat(device gfx.Device, candidates []gfx.Format) (gfx.Format, error) {
	for _, f := range candidates {
		if device.SupportsDepthFormat(f) {
			return f, nil
		}
	}
	return gfx.FormatUndefined, ErrNoDepthFormat
}

func (c *Chain) createAttachments() error {
	for idx, img := range c.images {
		view, err := c.device.NewImageView(img, c.colorFormat, gfx.AspectColor)
		if err != nil {
			return deviceError(fmt.Sprintf("device.NewImageView()[%d]", idx), err)
		}
		c.views = append(c.views, view)
	}

	depthImage, err := c.device.NewDepthImage(c.extent, c.depthFormat)
	if err != nil {
		return deviceError("device.NewDepthImage()", err)
	}
	c.depthImage = depthImage

	depthView, err := c.device.NewImageView(c.depthImage, c.depthFormat, gfx.AspectDepth)
	if err != nil {
		return deviceError("device.NewImageView(depth)", err)
	}
	c.depthView = depthView

	renderPass, err := c.device.NewRenderPass(c.colorFormat, c.depthFormat)
	if err != nil {
		return deviceError("device.NewRenderPass()", err)
	}
	c.renderPass = renderPass

	for idx, view := range c.views {
		fb, err := c.device.NewFramebuffer(c.renderPass, []gfx.ImageView{view, c.depthView}, c.extent)
		if err != nil {
			return deviceError(fmt.Sprintf("device.NewFramebuffer()[%d]", idx), err)
		}
		c.framebuffers = append(c.framebuffers, fb)
	}
	return nil
}

// AcquireNextImage requests the next presentable image. Signal is
// signaled once the image can be rendered to.
func (c *Chain) AcquireNextImage(signal gfx.Semaphore) (uint32, gfx.Status, error) {
	index, status, err := c.swapchain.AcquireNextImage(signal)
	if err != nil {
		return 0, status, deviceError("swapchain.AcquireNextImage()", err)
	}
	if status != gfx.StatusOutOfDate && int(index) >= len(c.images) {
		return 0, status, deviceError("swapchain.AcquireNextImage()",
			fmt.Errorf("image index %d out of range [0, %d)", index, len(c.images)))
	}
	return index, status, nil
}

// Present queues the image at index for display once wait is signaled.
func (c *Chain) Present(index uint32, wait gfx.Semaphore) (gfx.Status, error) {
	status, err := c.swapchain.Present(index, wait)
	if err != nil {
		return status, deviceError("swapchain.Present()", err)
	}
	return status, nil
}

// CompatibleWith reports whether other uses the same color and depth formats.
func (c *Chain) CompatibleWith(other *Chain) bool {
	return c.colorFormat == other.colorFormat && c.depthFormat == other.depthFormat
}

// Extent returns the size of the chain's images.
func (c *Chain) Extent() gfx.Extent2D {
	return c.extent
}

// ColorFormat returns the format of the presentable images.
func (c *Chain) ColorFormat() gfx.Format {
	return c.colorFormat
}

// DepthFormat returns the format of the depth attachment.
func (c *Chain) DepthFormat() gfx.Format {
	return c.depthFormat
}

// ImageCount returns the number of presentable images.
func (c *Chain) ImageCount() int {
	return len(c.images)
}

// RenderPass returns the render pass compatible with the chain's framebuffers.
func (c *Chain) RenderPass() gfx.RenderPass {
	return c.renderPass
}

// Framebuffer returns the framebuffer targeting the image at index.
func (c *Chain) Framebuffer(index uint32) gfx.Framebuffer {
	return c.framebuffers[index]
}

// Release destroys everything the chain owns. The device must be idle.
func (c *Chain) Release() {
	for _, fb := range c.framebuffers {
		fb.Release()
	}
	c.framebuffers = nil

	if c.renderPass != nil {
		c.renderPass.Release()
		c.renderPass = nil
	}
	if c.depthView != nil {
		c.depthView.Release()
		c.depthView = nil
	}
	if c.depthImage != nil {
		c.depthImage.Release()
		c.depthImage = nil
	}

	for _, view := range c.views {
		view.Release()
	}
	c.views = nil
	c.images = nil

	if c.swapchain != nil {
		c.swapchain.Release()
		c.swapchain = nil
	}
}
