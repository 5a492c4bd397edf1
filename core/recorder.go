// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/korufx/gfx"
)

// beginPass begins the chain's render pass on the framebuffer of image
// and sets viewport and scissor to cover the chain's extent.
func beginPass(cmd gfx.CommandBuffer, chain *Chain, image uint32, clear []gfx.ClearValue) {
	extent := chain.Extent()
	area := gfx.Rect2D{X: 0, Y: 0, Extent: extent}

	cmd.BeginRenderPass(gfx.RenderPassBegin{
		Pass:        chain.RenderPass(),
		Framebuffer: chain.Framebuffer(image),
		Area:        area,
		ClearValues: clear,
	})

	// Viewport and scissor are dynamic state, the extent may differ
	// from the one the pipeline was built against.
	cmd.SetViewport(gfx.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	cmd.SetScissor(area)
}

func endPass(cmd gfx.CommandBuffer) {
	cmd.EndRenderPass()
}
