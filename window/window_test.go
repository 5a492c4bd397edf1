// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/korufx/core"
)

var _ core.Surface = (*Window)(nil)

func TestHandleResize(t *testing.T) {
	c := qt.New(t)

	w := &Window{}
	w.handle(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MOVED})
	c.Assert(w.WasResized(), qt.IsFalse)

	for _, ev := range []uint8{sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_MINIMIZED} {
		w.handle(&sdl.WindowEvent{Event: ev})
		c.Assert(w.WasResized(), qt.IsTrue)
		w.ClearResized()
		c.Assert(w.WasResized(), qt.IsFalse)
	}
	c.Assert(w.ShouldClose(), qt.IsFalse)
}

func TestHandleClose(t *testing.T) {
	c := qt.New(t)

	for _, event := range []sdl.Event{
		&sdl.QuitEvent{},
		&sdl.WindowEvent{Event: sdl.WINDOWEVENT_CLOSE},
		&sdl.KeyboardEvent{Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}},
	} {
		w := &Window{}
		w.handle(event)
		c.Assert(w.ShouldClose(), qt.IsTrue, qt.Commentf("%T", event))
	}

	w := &Window{}
	w.handle(&sdl.KeyboardEvent{Keysym: sdl.Keysym{Sym: sdl.K_SPACE}})
	c.Assert(w.ShouldClose(), qt.IsFalse)
}
