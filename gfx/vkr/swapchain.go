// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

func (d *Device) chooseSurfaceFormat() (vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, nil)); err != nil {
		return vk.SurfaceFormat{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	if count == 0 {
		return vk.SurfaceFormat{}, errors.New("vk.GetPhysicalDeviceSurfaceFormats(): surface has no formats")
	}

	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, formats)); err != nil {
		return vk.SurfaceFormat{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	for idx := range formats {
		formats[idx].Deref()
	}
	return pickSurfaceFormat(formats), nil
}

// pickSurfaceFormat prefers 8 bit sRGB BGRA, falling back
// to whatever the surface lists first.
func pickSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func (d *Device) choosePresentMode() (vk.PresentMode, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, nil)); err != nil {
		return vk.PresentModeFifo, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}

	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, modes)); err != nil {
		return vk.PresentModeFifo, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	return pickPresentMode(modes), nil
}

// pickPresentMode prefers mailbox. FIFO is always available.
func pickPresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func pickCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, flag := range compositeAlphaFlags {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// swapchainExtent uses the surface's current extent when the window
// system dictates it, otherwise requested clamped to the supported range.
func swapchainExtent(caps vk.SurfaceCapabilities, requested gfx.Extent2D) gfx.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return gfx.Extent2D{
			Width:  caps.CurrentExtent.Width,
			Height: caps.CurrentExtent.Height,
		}
	}
	return gfx.Extent2D{
		Width:  clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// swapchainImageCount raises requested to the surface minimum and
// lowers it to the maximum, a zero maximum meaning unbounded.
func swapchainImageCount(caps vk.SurfaceCapabilities, requested uint32) uint32 {
	count := requested
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NewSwapchain implements interface
func (d *Device) NewSwapchain(cfg gfx.SwapchainConfiguration) (gfx.Swapchain, error) {
	caps, err := d.capabilities()
	if err != nil {
		return nil, err
	}

	var oldSwapchain vk.Swapchain
	if cfg.Old != nil {
		oldSwapchain = cfg.Old.(*Swapchain).swapchain
	}

	extent := swapchainExtent(caps, cfg.Extent)
	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.surface,
		MinImageCount:   swapchainImageCount(caps, cfg.MinImageCount),
		ImageFormat:     d.surfaceFormat.Format,
		ImageColorSpace: d.surfaceFormat.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   pickCompositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      d.presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(d.device, &scci, nil, &swapchain)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateSwapchain()")
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(d.device, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return nil, errors.Wrap(err, "vk.GetSwapchainImages(num)")
	}
	images := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(d.device, swapchain, &numImages, images)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return nil, errors.Wrap(err, "vk.GetSwapchainImages(images)")
	}

	s := &Swapchain{
		device:    d,
		swapchain: swapchain,
		format:    gfx.Format(d.surfaceFormat.Format),
		extent:    extent,
	}
	for _, image := range images {
		s.images = append(s.images, &Image{device: d.device, image: image, owned: true})
	}
	return s, nil
}

// Swapchain is the Vulkan implementation of gfx.Swapchain.
type Swapchain struct {
	device    *Device
	swapchain vk.Swapchain
	images    []gfx.Image
	format    gfx.Format
	extent    gfx.Extent2D
}

// Images implements interface
func (s *Swapchain) Images() []gfx.Image {
	return s.images
}

// Format implements interface
func (s *Swapchain) Format() gfx.Format {
	return s.format
}

// Extent implements interface
func (s *Swapchain) Extent() gfx.Extent2D {
	return s.extent
}

// AcquireNextImage implements interface
func (s *Swapchain) AcquireNextImage(signal gfx.Semaphore) (uint32, gfx.Status, error) {
	var index uint32
	result := vk.AcquireNextImage(s.device.device, s.swapchain, math.MaxUint64,
		signal.(*Semaphore).semaphore, nil, &index)
	status, err := classify("vk.AcquireNextImage()", result)
	return index, status, err
}

// Present implements interface
func (s *Swapchain) Present(index uint32, wait gfx.Semaphore) (gfx.Status, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain},
		PImageIndices:      []uint32{index},
	}
	return classify("vk.QueuePresent()", vk.QueuePresent(s.device.queue, &presentInfo))
}

// Release implements interface
func (s *Swapchain) Release() {
	s.images = nil
	vk.DestroySwapchain(s.device.device, s.swapchain, nil)
}
