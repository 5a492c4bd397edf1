// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"
	"time"

	"github.com/gobuffalo/envy"

	"github.com/devblok/korufx/gfx"
)

// Defaults applied to zero configuration values.
const (
	DefaultFramesInFlight = 2
	DefaultSwapchainSize  = 3
	DefaultFenceTimeout   = 100 * time.Millisecond
)

// DefaultDepthFormats are tried in order when picking a depth format.
var DefaultDepthFormats = []gfx.Format{
	gfx.FormatD32Sfloat,
	gfx.FormatD32SfloatS8Uint,
	gfx.FormatD24UnormS8Uint,
}

// DefaultClearColor is the color attachment clear value.
var DefaultClearColor = [4]float32{0.01, 0.01, 0.01, 1}

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	// SwapchainSize is the minimum number of presentable images requested.
	// The driver may create more.
	SwapchainSize uint32

	// FramesInFlight is the number of frames the CPU may record
	// ahead of the GPU.
	FramesInFlight int

	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	DepthFormats []gfx.Format

	// ClearColor is the color attachment clear value,
	// nil uses DefaultClearColor.
	ClearColor *[4]float32

	// FenceTimeout bounds a single wait on a fence, waits are
	// repeated until the fence signals.
	FenceTimeout time.Duration
}

// DefaultConfiguration returns the configuration the engine starts with.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 144,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:    DefaultSwapchainSize,
			FramesInFlight:   DefaultFramesInFlight,
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			ScreenWidth:      800,
			ScreenHeight:     600,
			DepthFormats:     DefaultDepthFormats,
			FenceTimeout:     DefaultFenceTimeout,
		},
	}
}

// FromEnv overrides configuration values with those found in the
// environment or in a .env file.
func (c Configuration) FromEnv() (Configuration, error) {
	var err error
	uint32Var := func(key string, dst *uint32) {
		if err != nil {
			return
		}
		if v, e := envy.MustGet(key); e == nil {
			var n uint64
			if n, err = strconv.ParseUint(v, 10, 32); err == nil {
				*dst = uint32(n)
			}
		}
	}
	intVar := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v, e := envy.MustGet(key); e == nil {
			*dst, err = strconv.Atoi(v)
		}
	}

	uint32Var("KORUFX_WIDTH", &c.Renderer.ScreenWidth)
	uint32Var("KORUFX_HEIGHT", &c.Renderer.ScreenHeight)
	uint32Var("KORUFX_SWAPCHAIN_SIZE", &c.Renderer.SwapchainSize)
	intVar("KORUFX_FRAMES_IN_FLIGHT", &c.Renderer.FramesInFlight)
	intVar("KORUFX_FPS", &c.Time.FramesPerSecond)
	if err != nil {
		return c, err
	}

	if v, e := envy.MustGet("KORUFX_FENCE_TIMEOUT"); e == nil {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, err
		}
		c.Renderer.FenceTimeout = d
	}
	return c, nil
}

func (c RendererConfiguration) normalize() RendererConfiguration {
	if c.FramesInFlight <= 0 {
		c.FramesInFlight = DefaultFramesInFlight
	}
	if c.SwapchainSize == 0 {
		c.SwapchainSize = DefaultSwapchainSize
	}
	if len(c.DepthFormats) == 0 {
		c.DepthFormats = DefaultDepthFormats
	}
	if c.ClearColor == nil {
		color := DefaultClearColor
		c.ClearColor = &color
	}
	if c.FenceTimeout <= 0 {
		c.FenceTimeout = DefaultFenceTimeout
	}
	return c
}

func (c RendererConfiguration) clearValues() []gfx.ClearValue {
	color := DefaultClearColor
	if c.ClearColor != nil {
		color = *c.ClearColor
	}
	return []gfx.ClearValue{
		{Color: color},
		{Depth: 1, Stencil: 0},
	}
}
