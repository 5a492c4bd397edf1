// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"

	"github.com/devblok/korufx/gfx"
)

func TestConfigurationFromEnv(t *testing.T) {
	c := qt.New(t)

	envy.Temp(func() {
		envy.Set("KORUFX_WIDTH", "1280")
		envy.Set("KORUFX_HEIGHT", "720")
		envy.Set("KORUFX_FRAMES_IN_FLIGHT", "3")
		envy.Set("KORUFX_FENCE_TIMEOUT", "250ms")

		cfg, err := DefaultConfiguration().FromEnv()
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1280))
		c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(720))
		c.Assert(cfg.Renderer.FramesInFlight, qt.Equals, 3)
		c.Assert(cfg.Renderer.FenceTimeout, qt.Equals, 250*time.Millisecond)
		c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(DefaultSwapchainSize))
		c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 144)
	})
}

func TestConfigurationFromEnvInvalid(t *testing.T) {
	c := qt.New(t)

	envy.Temp(func() {
		envy.Set("KORUFX_WIDTH", "wide")
		_, err := DefaultConfiguration().FromEnv()
		c.Assert(err, qt.ErrorMatches, `strconv.ParseUint: parsing "wide": invalid syntax`)
	})

	envy.Temp(func() {
		envy.Set("KORUFX_FENCE_TIMEOUT", "soon")
		_, err := DefaultConfiguration().FromEnv()
		c.Assert(err, qt.ErrorMatches, `time: invalid duration .*soon.*`)
	})
}

func TestRendererConfigurationNormalize(t *testing.T) {
	c := qt.New(t)

	cfg := RendererConfiguration{}.normalize()
	c.Assert(cfg.FramesInFlight, qt.Equals, DefaultFramesInFlight)
	c.Assert(cfg.SwapchainSize, qt.Equals, uint32(DefaultSwapchainSize))
	c.Assert(cfg.DepthFormats, qt.DeepEquals, DefaultDepthFormats)
	c.Assert(*cfg.ClearColor, qt.Equals, DefaultClearColor)
	c.Assert(cfg.FenceTimeout, qt.Equals, DefaultFenceTimeout)

	cfg = RendererConfiguration{
		FramesInFlight: 4,
		DepthFormats:   []gfx.Format{gfx.FormatD16Unorm},
		ClearColor:     &[4]float32{1, 0, 0, 1},
	}.normalize()
	c.Assert(cfg.FramesInFlight, qt.Equals, 4)
	c.Assert(cfg.DepthFormats, qt.DeepEquals, []gfx.Format{gfx.FormatD16Unorm})

	values := cfg.clearValues()
	c.Assert(values, qt.DeepEquals, []gfx.ClearValue{
		{Color: [4]float32{1, 0, 0, 1}},
		{Depth: 1, Stencil: 0},
	})

	transparent := RendererConfiguration{ClearColor: &[4]float32{}}.normalize()
	c.Assert(transparent.clearValues()[0].Color, qt.Equals, [4]float32{})
}

func TestTime(t *testing.T) {
	c := qt.New(t)

	tm := NewTime(TimeConfiguration{FramesPerSecond: 100, EventPollDelay: 5})
	defer tm.Stop()
	c.Assert(tm.Fps(), qt.Equals, 100)
	c.Assert(tm.FpsTicker(), qt.Not(qt.IsNil))
	c.Assert(tm.EventTicker(), qt.Not(qt.IsNil))

	c.Assert(frameInterval(100), qt.Equals, 10*time.Millisecond)
	c.Assert(frameInterval(0), qt.Equals, time.Nanosecond)
	c.Assert(pollInterval(5), qt.Equals, 5*time.Millisecond)
	c.Assert(pollInterval(-1), qt.Equals, time.Millisecond)
}
