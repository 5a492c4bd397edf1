// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

// CommandBuffer is the Vulkan implementation of gfx.CommandBuffer.
type CommandBuffer struct {
	buffer vk.CommandBuffer
}

// Get returns the vulkan command buffer handle.
func (c *CommandBuffer) Get() vk.CommandBuffer {
	return c.buffer
}

// Begin implements interface. The command pool resets
// buffers implicitly when recording begins.
func (c *CommandBuffer) Begin() error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(c.buffer, &cbbi)); err != nil {
		return errors.Wrap(err, "vk.BeginCommandBuffer()")
	}
	return nil
}

// End implements interface
func (c *CommandBuffer) End() error {
	if err := vk.Error(vk.EndCommandBuffer(c.buffer)); err != nil {
		return errors.Wrap(err, "vk.EndCommandBuffer()")
	}
	return nil
}

// clearValues converts clear values in attachment order,
// the first attachment is color and the rest depth.
func clearValues(values []gfx.ClearValue) []vk.ClearValue {
	converted := make([]vk.ClearValue, len(values))
	for idx, v := range values {
		if idx == 0 {
			converted[idx].SetColor(v.Color[:])
		} else {
			converted[idx].SetDepthStencil(v.Depth, v.Stencil)
		}
	}
	return converted
}

func rect2D(r gfx.Rect2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{
			X: r.X,
			Y: r.Y,
		},
		Extent: vk.Extent2D{
			Width:  r.Extent.Width,
			Height: r.Extent.Height,
		},
	}
}

// BeginRenderPass implements interface
func (c *CommandBuffer) BeginRenderPass(begin gfx.RenderPassBegin) {
	values := clearValues(begin.ClearValues)
	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      begin.Pass.(*RenderPass).renderPass,
		Framebuffer:     begin.Framebuffer.(*Framebuffer).framebuffer,
		RenderArea:      rect2D(begin.Area),
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}
	vk.CmdBeginRenderPass(c.buffer, &rpbi, vk.SubpassContentsInline)
}

// EndRenderPass implements interface
func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.buffer)
}

// SetViewport implements interface
func (c *CommandBuffer) SetViewport(viewport gfx.Viewport) {
	vk.CmdSetViewport(c.buffer, 0, 1, []vk.Viewport{{
		X:        viewport.X,
		Y:        viewport.Y,
		Width:    viewport.Width,
		Height:   viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

// SetScissor implements interface
func (c *CommandBuffer) SetScissor(scissor gfx.Rect2D) {
	vk.CmdSetScissor(c.buffer, 0, 1, []vk.Rect2D{rect2D(scissor)})
}
