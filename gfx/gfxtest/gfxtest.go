// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest provides in-memory implementations of the gfx
// interfaces whose behaviour can be scripted from tests.
package gfxtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/devblok/korufx/gfx"
)

// ErrInjected is returned by operations a test asked to fail.
var ErrInjected = errors.New("gfxtest: injected failure")

// NewDevice creates a device whose swapchains hold imageCount images of format.
func NewDevice(imageCount int, format gfx.Format) *Device {
	return &Device{
		ImageCount: imageCount,
		Format:     format,
	}
}

// Device is a scriptable gfx.Device. Exported fields may be changed
// between calls to alter the behaviour of subsequent operations.
type Device struct {
	ImageCount int
	Format     gfx.Format

	// DepthFormats lists the supported depth formats, nil supports all.
	DepthFormats []gfx.Format

	// MaxExtent clamps requested extents when non-zero.
	MaxExtent gfx.Extent2D

	// ZeroExtents is the number of upcoming DrawableExtent calls
	// that report 0x0, as drivers do for a minimized window.
	ZeroExtents int

	// FencePolls is the number of times a fence reports not signaled
	// after each submission before it signals.
	FencePolls int

	// AcquireStatus and PresentStatus, when set, are consulted with the
	// 1-based call number of every acquire and present.
	AcquireStatus func(call int) gfx.Status
	PresentStatus func(call int) gfx.Status

	FailSubmit    bool
	FailSwapchain bool
	FailAllocate  bool

	// Counters
	Idles       int
	Acquires    int
	Presents    int
	Submissions []Submission
	Swapchains  []*Swapchain
	Fences      []*Fence
	Released    int
	Live        int
}

// Submission records one call to Submit.
type Submission struct {
	CommandBuffer *CommandBuffer
	Wait          gfx.Semaphore
	Signal        gfx.Semaphore
	Fence         *Fence
}

type handle struct {
	device   *Device
	kind     string
	released bool
}

func (d *Device) newHandle(kind string) *handle {
	d.Live++
	return &handle{device: d, kind: kind}
}

// Release implements interface
func (h *handle) Release() {
	if h.released {
		panic(fmt.Sprintf("gfxtest: %s released twice", h.kind))
	}
	h.released = true
	h.device.Live--
	h.device.Released++
}

// Released reports whether the handle was released.
func (h *handle) Released() bool {
	return h.released
}

// DrawableExtent implements interface
func (d *Device) DrawableExtent(requested gfx.Extent2D) (gfx.Extent2D, error) {
	if d.ZeroExtents > 0 {
		d.ZeroExtents--
		return gfx.Extent2D{}, nil
	}
	if d.MaxExtent.Width != 0 && requested.Width > d.MaxExtent.Width {
		requested.Width = d.MaxExtent.Width
	}
	if d.MaxExtent.Height != 0 && requested.Height > d.MaxExtent.Height {
		requested.Height = d.MaxExtent.Height
	}
	return requested, nil
}

// NewSwapchain implements interface
func (d *Device) NewSwapchain(cfg gfx.SwapchainConfiguration) (gfx.Swapchain, error) {
	if d.FailSwapchain {
		return nil, ErrInjected
	}
	sc := &Swapchain{
		handle: d.newHandle("swapchain"),
		Config: cfg,
		format: d.Format,
		extent: cfg.Extent,
	}
	for idx := 0; idx < d.ImageCount; idx++ {
		sc.images = append(sc.images, &Image{Owned: true})
	}
	d.Swapchains = append(d.Swapchains, sc)
	return sc, nil
}

// NewImageView implements interface
func (d *Device) NewImageView(img gfx.Image, format gfx.Format, aspect gfx.Aspect) (gfx.ImageView, error) {
	return &ImageView{handle: d.newHandle("image view"), Image: img, Format: format, Aspect: aspect}, nil
}

// NewDepthImage implements interface
func (d *Device) NewDepthImage(extent gfx.Extent2D, format gfx.Format) (gfx.Image, error) {
	return &Image{handle: d.newHandle("depth image"), Extent: extent, Format: format}, nil
}

// SupportsDepthFormat implements interface
func (d *Device) SupportsDepthFormat(format gfx.Format) bool {
	if d.DepthFormats == nil {
		return true
	}
	for _, f := range d.DepthFormats {
		if f == format {
			return true
		}
	}
	return false
}

// NewRenderPass implements interface
func (d *Device) NewRenderPass(color, depth gfx.Format) (gfx.RenderPass, error) {
	return &RenderPass{handle: d.newHandle("render pass"), Color: color, Depth: depth}, nil
}

// NewFramebuffer implements interface
func (d *Device) NewFramebuffer(pass gfx.RenderPass, attachments []gfx.ImageView, extent gfx.Extent2D) (gfx.Framebuffer, error) {
	return &Framebuffer{handle: d.newHandle("framebuffer"), Pass: pass, Attachments: attachments, Extent: extent}, nil
}

// NewSemaphore implements interface
func (d *Device) NewSemaphore() (gfx.Semaphore, error) {
	return &Semaphore{handle: d.newHandle("semaphore")}, nil
}

// NewFence implements interface
func (d *Device) NewFence(signaled bool) (gfx.Fence, error) {
	f := &Fence{handle: d.newHandle("fence"), signaled: signaled}
	d.Fences = append(d.Fences, f)
	return f, nil
}

// AllocateCommandBuffers implements interface
func (d *Device) AllocateCommandBuffers(count int) ([]gfx.CommandBuffer, error) {
	if d.FailAllocate {
		return nil, ErrInjected
	}
	buffers := make([]gfx.CommandBuffer, count)
	for idx := range buffers {
		buffers[idx] = &CommandBuffer{}
	}
	d.Live += count
	return buffers, nil
}

// FreeCommandBuffers implements interface
func (d *Device) FreeCommandBuffers(buffers []gfx.CommandBuffer) {
	d.Live -= len(buffers)
	d.Released += len(buffers)
}

// Submit implements interface
func (d *Device) Submit(cmd gfx.CommandBuffer, wait, signal gfx.Semaphore, fence gfx.Fence) error {
	if d.FailSubmit {
		return ErrInjected
	}
	cb := cmd.(*CommandBuffer)
	if cb.recording {
		return errors.New("gfxtest: submitted command buffer is still recording")
	}
	f := fence.(*Fence)
	if f.signaled {
		return errors.New("gfxtest: submitted with a signaled fence")
	}
	f.pending = d.FencePolls
	d.Submissions = append(d.Submissions, Submission{
		CommandBuffer: cb,
		Wait:          wait,
		Signal:        signal,
		Fence:         f,
	})
	return nil
}

// WaitIdle implements interface
func (d *Device) WaitIdle() error {
	d.Idles++
	for _, f := range d.Fences {
		if !f.released {
			f.signaled = true
			f.pending = 0
		}
	}
	return nil
}

// Swapchain is a fake gfx.Swapchain.
type Swapchain struct {
	*handle

	Config gfx.SwapchainConfiguration
	format gfx.Format
	extent gfx.Extent2D
	images []*Image
	next   uint32
}

// Images implements interface
func (s *Swapchain) Images() []gfx.Image {
	images := make([]gfx.Image, len(s.images))
	for idx, img := range s.images {
		images[idx] = img
	}
	return images
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
	if s.released {
		return 0, gfx.StatusOK, errors.New("gfxtest: acquire on released swapchain")
	}
	s.device.Acquires++
	status := gfx.StatusOK
	if s.device.AcquireStatus != nil {
		status = s.device.AcquireStatus(s.device.Acquires)
	}
	if status == gfx.StatusOutOfDate {
		return 0, status, nil
	}
	index := s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	return index, status, nil
}

// Present implements interface
func (s *Swapchain) Present(index uint32, wait gfx.Semaphore) (gfx.Status, error) {
	if s.released {
		return gfx.StatusOK, errors.New("gfxtest: present on released swapchain")
	}
	s.device.Presents++
	if s.device.PresentStatus != nil {
		return s.device.PresentStatus(s.device.Presents), nil
	}
	return gfx.StatusOK, nil
}

// Image is a fake gfx.Image.
type Image struct {
	*handle

	// Owned images belong to a swapchain and ignore Release.
	Owned  bool
	Extent gfx.Extent2D
	Format gfx.Format
}

// Release implements interface
func (i *Image) Release() {
	if !i.Owned {
		i.handle.Release()
	}
}

// ImageView is a fake gfx.ImageView.
type ImageView struct {
	*handle

	Image  gfx.Image
	Format gfx.Format
	Aspect gfx.Aspect
}

// RenderPass is a fake gfx.RenderPass.
type RenderPass struct {
	*handle

	Color gfx.Format
	Depth gfx.Format
}

// Framebuffer is a fake gfx.Framebuffer.
type Framebuffer struct {
	*handle

	Pass        gfx.RenderPass
	Attachments []gfx.ImageView
	Extent      gfx.Extent2D
}

// Semaphore is a fake gfx.Semaphore.
type Semaphore struct {
	*handle
}

// Fence is a fake gfx.Fence. After a submission it reports not signaled
// Device.FencePolls times before it signals.
type Fence struct {
	*handle

	signaled bool
	pending  int

	// NotReady counts waits that returned unsignaled.
	NotReady int
	// Waits counts all waits, Resets all resets.
	Waits  int
	Resets int
}

// Wait implements interface
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	f.Waits++
	if f.signaled {
		return true, nil
	}
	if f.pending > 0 {
		f.pending--
		f.NotReady++
		return false, nil
	}
	f.signaled = true
	return true, nil
}

// Reset implements interface
func (f *Fence) Reset() error {
	f.Resets++
	f.signaled = false
	return nil
}

// Signaled reports whether the fence is signaled.
func (f *Fence) Signaled() bool {
	return f.signaled
}

// CommandBuffer is a fake gfx.CommandBuffer that records
// the commands it receives.
type CommandBuffer struct {
	recording bool

	// Commands lists the recorded commands by name,
	// it is cleared by Begin.
	Commands  []string
	Viewports []gfx.Viewport
	Scissors  []gfx.Rect2D
	Passes    []gfx.RenderPassBegin
}

// Begin implements interface
func (c *CommandBuffer) Begin() error {
	if c.recording {
		return errors.New("gfxtest: command buffer already recording")
	}
	c.recording = true
	c.Commands = c.Commands[:0]
	c.Viewports = c.Viewports[:0]
	c.Scissors = c.Scissors[:0]
	c.Passes = c.Passes[:0]
	return nil
}

// End implements interface
func (c *CommandBuffer) End() error {
	if !c.recording {
		return errors.New("gfxtest: command buffer not recording")
	}
	c.recording = false
	return nil
}

// BeginRenderPass implements interface
func (c *CommandBuffer) BeginRenderPass(begin gfx.RenderPassBegin) {
	c.Commands = append(c.Commands, "BeginRenderPass")
	c.Passes = append(c.Passes, begin)
}

// EndRenderPass implements interface
func (c *CommandBuffer) EndRenderPass() {
	c.Commands = append(c.Commands, "EndRenderPass")
}

// SetViewport implements interface
func (c *CommandBuffer) SetViewport(viewport gfx.Viewport) {
	c.Commands = append(c.Commands, "SetViewport")
	c.Viewports = append(c.Viewports, viewport)
}

// SetScissor implements interface
func (c *CommandBuffer) SetScissor(scissor gfx.Rect2D) {
	c.Commands = append(c.Commands, "SetScissor")
	c.Scissors = append(c.Scissors, scissor)
}

// Record appends a named command, for drawables under test.
func (c *CommandBuffer) Record(name string) {
	c.Commands = append(c.Commands, name)
}

// Recording reports whether Begin was called without End.
func (c *CommandBuffer) Recording() bool {
	return c.recording
}

// NewSurface creates a surface that reports the given sizes in order,
// repeating the last one.
func NewSurface(sizes ...gfx.Extent2D) *Surface {
	return &Surface{sizes: sizes}
}

// Surface is a scriptable core.Surface.
type Surface struct {
	sizes []gfx.Extent2D

	Resized bool

	// Queries counts DrawableSize calls, Waits counts WaitEvents calls.
	Queries int
	Waits   int
}

// DrawableSize implements interface
func (s *Surface) DrawableSize() gfx.Extent2D {
	s.Queries++
	size := s.sizes[0]
	if len(s.sizes) > 1 {
		s.sizes = s.sizes[1:]
	}
	return size
}

// Push queues sizes to be reported after the pending ones.
func (s *Surface) Push(sizes ...gfx.Extent2D) {
	s.sizes = append(s.sizes, sizes...)
}

// Resize makes the surface report extent and raises the resize flag.
func (s *Surface) Resize(extent gfx.Extent2D) {
	s.sizes = []gfx.Extent2D{extent}
	s.Resized = true
}

// WasResized implements interface
func (s *Surface) WasResized() bool {
	return s.Resized
}

// ClearResized implements interface
func (s *Surface) ClearResized() {
	s.Resized = false
}

// WaitEvents implements interface
func (s *Surface) WaitEvents() {
	s.Waits++
}
