// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the rendering primitives that a graphics backend
// must provide for the frame machinery to drive it.
package gfx

import (
	"fmt"
	"time"
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent2D is a size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Degenerate reports whether either dimension is zero,
// which is the case for minimized windows.
func (e Extent2D) Degenerate() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Rect2D is an area in framebuffer coordinates.
type Rect2D struct {
	X, Y   int32
	Extent Extent2D
}

// Viewport maps normalized device coordinates onto the framebuffer.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// ClearValue holds the values an attachment is cleared to
// when a render pass begins.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// Format identifies a pixel format. Values match the numbering
// used by Vulkan so backends may convert directly.
type Format int32

// Formats used by the frame machinery.
const (
	FormatUndefined       Format = 0
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatD16Unorm        Format = 124
	FormatD32Sfloat       Format = 126
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	case FormatB8G8R8A8Srgb:
		return "B8G8R8A8_SRGB"
	case FormatD16Unorm:
		return "D16_UNORM"
	case FormatD32Sfloat:
		return "D32_SFLOAT"
	case FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case FormatD32SfloatS8Uint:
		return "D32_SFLOAT_S8_UINT"
	}
	return fmt.Sprintf("format(%d)", int32(f))
}

// Aspect selects which part of an image a view refers to.
type Aspect int

// Image aspects
const (
	AspectColor Aspect = iota
	AspectDepth
)

// Status is the outcome of acquiring or presenting a swapchain image
// that did not fail outright.
type Status int

// Presentation statuses
const (
	// StatusOK means the swapchain matches the surface.
	StatusOK Status = iota

	// StatusSuboptimal means the image is usable but the swapchain
	// no longer matches the surface exactly and should be rebuilt.
	StatusSuboptimal

	// StatusOutOfDate means the swapchain can no longer be used.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Image is a GPU image. Images owned by a swapchain
// ignore Release.
type Image interface {
	Releasable
}

// ImageView is a view into an Image usable as an attachment.
type ImageView interface {
	Releasable
}

// RenderPass describes the attachments a framebuffer must provide.
type RenderPass interface {
	Releasable
}

// Framebuffer binds image views to a RenderPass.
type Framebuffer interface {
	Releasable
}

// Semaphore orders work between GPU queue operations.
type Semaphore interface {
	Releasable
}

// Fence is a CPU-observable completion signal for a submission.
type Fence interface {
	Releasable

	// Wait blocks for at most timeout and reports whether
	// the fence is signaled.
	Wait(timeout time.Duration) (bool, error)

	// Reset returns the fence to the unsignaled state.
	Reset() error
}

// RenderPassBegin describes the start of a render pass.
type RenderPassBegin struct {
	Pass        RenderPass
	Framebuffer Framebuffer
	Area        Rect2D
	ClearValues []ClearValue
}

// CommandBuffer records GPU commands.
type CommandBuffer interface {

	// Begin starts recording, discarding previously recorded commands.
	Begin() error

	// End finishes recording.
	End() error

	BeginRenderPass(begin RenderPassBegin)
	EndRenderPass()
	SetViewport(viewport Viewport)
	SetScissor(scissor Rect2D)
}

// SwapchainConfiguration describes a swapchain to be created.
type SwapchainConfiguration struct {
	Extent        Extent2D
	MinImageCount uint32

	// Old is the swapchain being replaced, if any. It stays valid
	// and must be released by the caller afterwards.
	Old Swapchain
}

// Swapchain is a set of presentable images.
type Swapchain interface {
	Releasable

	// Images returns the presentable images, ordered by index.
	Images() []Image

	Format() Format
	Extent() Extent2D

	// AcquireNextImage requests the next presentable image,
	// signal is signaled once the image may be rendered to.
	AcquireNextImage(signal Semaphore) (uint32, Status, error)

	// Present queues the image at index for display after wait is signaled.
	Present(index uint32, wait Semaphore) (Status, error)
}

// Device is a logical GPU device with a queue that accepts
// both graphics and presentation work.
type Device interface {

	// DrawableExtent returns the extent the surface accepts
	// for a window of the requested size.
	DrawableExtent(requested Extent2D) (Extent2D, error)

	NewSwapchain(cfg SwapchainConfiguration) (Swapchain, error)
	NewImageView(img Image, format Format, aspect Aspect) (ImageView, error)
	NewDepthImage(extent Extent2D, format Format) (Image, error)

	// SupportsDepthFormat reports whether format can be used
	// as an optimally tiled depth attachment.
	SupportsDepthFormat(format Format) bool

	NewRenderPass(color, depth Format) (RenderPass, error)
	NewFramebuffer(pass RenderPass, attachments []ImageView, extent Extent2D) (Framebuffer, error)

	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)

	// Submit queues cmd for execution once wait is signaled,
	// signal and fence are signaled when execution completes.
	Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
}
