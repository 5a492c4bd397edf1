// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

// ShaderStage is the pipeline stage a shader runs in.
type ShaderStage int

// Shader stages
const (
	VertexStage ShaderStage = iota
	FragmentStage
)

const shaderSuffix = ".spv"

// ShaderFiles finds compiled shaders in dir. A shader file is named
// name.stage.spv where stage is either vert or frag, other files are
// ignored. When several files share a stage the last one found wins.
func ShaderFiles(dir string) (map[ShaderStage]string, error) {
	files := make(map[ShaderStage]string)
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), shaderSuffix) {
			return nil
		}

		nodes := strings.Split(strings.TrimSuffix(f.Name(), shaderSuffix), ".")
		if len(nodes) != 2 {
			return nil
		}

		switch nodes[1] {
		case "vert":
			files[VertexStage] = path
		case "frag":
			files[FragmentStage] = path
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "vkr.ShaderFiles()")
	}
	return files, nil
}

// sliceUint32 reslices SPIR-V bytes into the words Vulkan expects.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// NewShader creates a shader module from the SPIR-V file at path.
func NewShader(d *Device, stage ShaderStage, path string) (*Shader, error) {
	code, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewShader()")
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("vkr.NewShader(): %s is not SPIR-V", path)
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.device, &smci, nil, &module)); err != nil {
		return nil, errors.Wrapf(err, "vk.CreateShaderModule(%s)", filepath.Base(path))
	}

	return &Shader{
		device: d.device,
		module: module,
		stage:  stage,
	}, nil
}

// Shader is a compiled shader module.
type Shader struct {
	device vk.Device
	module vk.ShaderModule
	stage  ShaderStage
}

// Stage returns the pipeline stage of the shader.
func (s *Shader) Stage() ShaderStage {
	return s.stage
}

// Release destroys the shader module, it is no
// longer needed once a pipeline was created.
func (s *Shader) Release() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}

const pushStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)

// NewPipeline creates a graphics pipeline drawing Vertex lists into
// pass, with pushSize bytes of push constants visible to both stages.
// Viewport and scissor are dynamic, so the pipeline survives chain
// rebuilds as long as the render pass formats stay the same.
func NewPipeline(d *Device, pass gfx.RenderPass, shaders []*Shader, pushSize uint32) (*Pipeline, error) {
	p := &Pipeline{device: d.device}

	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if pushSize > 0 {
		plci.PushConstantRangeCount = 1
		plci.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: pushStages,
			Offset:     0,
			Size:       pushSize,
		}}
	}
	if err := vk.Error(vk.CreatePipelineLayout(d.device, &plci, nil, &p.layout)); err != nil {
		return nil, errors.Wrap(err, "vk.CreatePipelineLayout()")
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(shaders))
	for idx, shader := range shaders {
		stage := vk.ShaderStageVertexBit
		if shader.stage == FragmentStage {
			stage = vk.ShaderStageFragmentBit
		}
		stages[idx] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: shader.module,
			PName:  "main\x00",
		}
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   1,
			PVertexBindingDescriptions:      vertexBindings,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributes)),
			PVertexAttributeDescriptions:    vertexAttributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     p.layout,
		RenderPass: pass.(*RenderPass).renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(d.device, nil, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		vk.DestroyPipelineLayout(d.device, p.layout, nil)
		return nil, errors.Wrap(err, "vk.CreateGraphicsPipelines()")
	}
	p.pipeline = pipelines[0]
	return p, nil
}

// Pipeline is a graphics pipeline together with its layout.
type Pipeline struct {
	device   vk.Device
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// Bind binds the pipeline for the following draws.
func (p *Pipeline) Bind(cmd gfx.CommandBuffer) {
	vk.CmdBindPipeline(cmd.(*CommandBuffer).buffer, vk.PipelineBindPointGraphics, p.pipeline)
}

// Push updates the push constants of the following draws.
func (p *Pipeline) Push(cmd gfx.CommandBuffer, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd.(*CommandBuffer).buffer, p.layout, pushStages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// Release destroys the pipeline and its layout.
func (p *Pipeline) Release() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
}
