// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package scene

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/gfx/gfxtest"
)

var _ core.Drawable = (*RenderSystem)(nil)

type fakePipeline struct {
	pushes [][]byte
}

func (p *fakePipeline) Bind(cmd gfx.CommandBuffer) {
	cmd.(*gfxtest.CommandBuffer).Record("BindPipeline")
}

func (p *fakePipeline) Push(cmd gfx.CommandBuffer, data []byte) {
	cmd.(*gfxtest.CommandBuffer).Record("Push")
	p.pushes = append(p.pushes, data)
}

type fakeModel string

func (m fakeModel) Draw(cmd gfx.CommandBuffer) {
	cmd.(*gfxtest.CommandBuffer).Record(fmt.Sprintf("Draw(%s)", m))
}

func TestRegistry(t *testing.T) {
	c := qt.New(t)

	r := NewRegistry()
	a, b, d := r.Create(), r.Create(), r.Create()
	c.Assert([]ID{a.ID(), b.ID(), d.ID()}, qt.DeepEquals, []ID{0, 1, 2})
	c.Assert(a.Transform, qt.Equals, Identity())
	c.Assert(r.Len(), qt.Equals, 3)

	got, ok := r.Get(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, b)

	c.Assert(r.Remove(1), qt.IsTrue)
	c.Assert(r.Remove(1), qt.IsFalse)
	_, ok = r.Get(1)
	c.Assert(ok, qt.IsFalse)
	c.Assert(r.Objects(), qt.DeepEquals, []*Object{a, d})

	// removed ids are not handed out again
	c.Assert(r.Create().ID(), qt.Equals, ID(3))
}

func TestTransformMat2(t *testing.T) {
	c := qt.New(t)

	c.Assert(Identity().Mat2(), qt.Equals, glm.Ident2())

	tr := Transform2D{Scale: glm.Vec2{2, 3}, Rotation: math.Pi / 2}
	v := tr.Mat2().Mul2x1(glm.Vec2{1, 1})
	c.Assert(v.ApproxEqual(glm.Vec2{-3, 2}), qt.IsTrue, qt.Commentf("got %v", v))
}

func TestPushDataBytes(t *testing.T) {
	c := qt.New(t)

	push := PushData{
		Transform: glm.Mat2{1, 2, 3, 4},
		Offset:    glm.Vec2{5, 6},
		Color:     glm.Vec3{7, 8, 9},
	}
	data := push.Bytes()
	c.Assert(data, qt.HasLen, PushDataSize)

	at := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
	}
	for offset, want := range map[int]float32{
		0: 1, 12: 4, 16: 5, 20: 6, 32: 7, 40: 9, 44: 0, 24: 0,
	} {
		c.Check(at(offset), qt.Equals, want, qt.Commentf("offset %d", offset))
	}
}

func TestRenderSystemDraw(t *testing.T) {
	c := qt.New(t)

	r := NewRegistry()
	tri := r.Create()
	tri.Model = fakeModel("tri")
	tri.Color = glm.Vec3{1, 0, 0}
	tri.Transform.Translation = glm.Vec2{0.5, -0.5}
	r.Create()
	quad := r.Create()
	quad.Model = fakeModel("quad")

	pipeline := &fakePipeline{}
	cmd := &gfxtest.CommandBuffer{}
	NewRenderSystem(pipeline, r).Draw(cmd, 0)

	c.Assert(cmd.Commands, qt.DeepEquals, []string{
		"BindPipeline",
		"Push", "Draw(tri)",
		"Push", "Draw(quad)",
	})
	c.Assert(pipeline.pushes, qt.HasLen, 2)
	c.Assert(pipeline.pushes[0], qt.DeepEquals, PushData{
		Transform: glm.Ident2(),
		Offset:    glm.Vec2{0.5, -0.5},
		Color:     glm.Vec3{1, 0, 0},
	}.Bytes())
}

func TestRenderSystemInFrame(t *testing.T) {
	c := qt.New(t)

	dev := gfxtest.NewDevice(3, gfx.FormatB8G8R8A8Srgb)
	surface := gfxtest.NewSurface(gfx.Extent2D{Width: 800, Height: 600})
	renderer, err := core.NewRenderer(dev, surface, core.DefaultConfiguration().Renderer)
	c.Assert(err, qt.IsNil)
	c.Cleanup(renderer.Release)

	r := NewRegistry()
	r.Create().Model = fakeModel("tri")
	system := NewRenderSystem(&fakePipeline{}, r)

	f, err := renderer.BeginFrame()
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.IsNotNil)
	renderer.BeginPass(f)
	renderer.Draw(f, system)
	renderer.EndPass(f)
	c.Assert(renderer.EndFrame(), qt.IsNil)

	cmd := dev.Submissions[0].CommandBuffer
	c.Assert(cmd.Commands, qt.DeepEquals, []string{
		"BeginRenderPass", "SetViewport", "SetScissor",
		"BindPipeline", "Push", "Draw(tri)",
		"EndRenderPass",
	})
}
