// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window implements core.Surface with an SDL2 window.
package window

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/korufx/gfx"
)

// Init initialises SDL video and loads the Vulkan library.
// Quit undoes it.
func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	return nil
}

// Quit unloads the Vulkan library and shuts SDL down.
func Quit() {
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}

// ProcAddr returns vkGetInstanceProcAddr as loaded by SDL.
func ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// New creates a resizable Vulkan capable window.
func New(title string, width, height uint32) (*Window, error) {
	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &Window{window: window}, nil
}

// Window is an SDL2 window. It must be used from the
// thread that initialised SDL.
type Window struct {
	window *sdl.Window

	resized     bool
	shouldClose bool
}

// InstanceExtensions returns the Vulkan instance
// extensions the window system needs.
func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// CreateSurface creates a Vulkan surface for the window on
// instance, which must be a vk.Instance handle.
func (w *Window) CreateSurface(instance interface{}) (unsafe.Pointer, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return surface, nil
}

// DrawableSize implements core.Surface
func (w *Window) DrawableSize() gfx.Extent2D {
	if w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return gfx.Extent2D{}
	}
	width, height := w.window.VulkanGetDrawableSize()
	if width < 0 || height < 0 {
		return gfx.Extent2D{}
	}
	return gfx.Extent2D{Width: uint32(width), Height: uint32(height)}
}

// WasResized implements core.Surface
func (w *Window) WasResized() bool {
	return w.resized
}

// ClearResized implements core.Surface
func (w *Window) ClearResized() {
	w.resized = false
}

// WaitEvents implements core.Surface, the received
// event is handled like any polled one.
func (w *Window) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		w.handle(event)
	}
}

// PollEvents handles all pending events without blocking.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool {
	return w.shouldClose
}

func (w *Window) handle(event sdl.Event) {
	switch et := event.(type) {
	case *sdl.WindowEvent:
		switch et.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED,
			sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
			w.resized = true
		case sdl.WINDOWEVENT_CLOSE:
			w.shouldClose = true
		}
	case *sdl.KeyboardEvent:
		if et.Keysym.Sym == sdl.K_ESCAPE {
			w.shouldClose = true
		}
	case *sdl.QuitEvent:
		w.shouldClose = true
	}
}

// Destroy closes the window.
func (w *Window) Destroy() {
	w.window.Destroy()
}
