// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/gfx/vkr"
	"github.com/devblok/korufx/scene"
	"github.com/devblok/korufx/window"
)

func init() {
	runtime.LockOSThread()
}

var frameCounter int64

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	shaders      = flag.String("shaders", "", "Directory with compiled name.vert.spv and name.frag.spv shaders")
	verbose      = flag.Bool("v", false, "Verbose logging")
)

var triangle = []vkr.Vertex{
	{Position: glm.Vec3{0, -0.5, 0}, Color: glm.Vec3{1, 0, 0}},
	{Position: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec3{0, 1, 0}},
	{Position: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec3{0, 0, 1}},
}

// scenery is what gets drawn each frame when shaders are available.
type scenery struct {
	pipeline *vkr.Pipeline
	model    *vkr.Model
	registry *scene.Registry
	system   *scene.RenderSystem
}

func newScenery(device *vkr.Device, renderer *core.Renderer, dir string) (*scenery, error) {
	files, err := vkr.ShaderFiles(dir)
	if err != nil {
		return nil, err
	}

	var modules []*vkr.Shader
	defer func() {
		for _, module := range modules {
			module.Release()
		}
	}()
	for _, stage := range []vkr.ShaderStage{vkr.VertexStage, vkr.FragmentStage} {
		path, ok := files[stage]
		if !ok {
			log.WithField("dir", dir).Warn("shader stage missing, drawing nothing")
			return nil, nil
		}
		module, err := vkr.NewShader(device, stage, path)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}

	pipeline, err := vkr.NewPipeline(device, renderer.Chain().RenderPass(), modules, scene.PushDataSize)
	if err != nil {
		return nil, err
	}
	model, err := vkr.NewModel(device, triangle)
	if err != nil {
		pipeline.Release()
		return nil, err
	}

	registry := scene.NewRegistry()
	for idx, color := range []glm.Vec3{{1, 1, 1}, {1, 0.5, 0.2}} {
		obj := registry.Create()
		obj.Model = model
		obj.Color = color
		obj.Transform.Translation = glm.Vec2{float32(idx)*0.8 - 0.4, 0}
		obj.Transform.Scale = glm.Vec2{0.6, 0.6}
	}

	return &scenery{
		pipeline: pipeline,
		model:    model,
		registry: registry,
		system:   scene.NewRenderSystem(pipeline, registry),
	}, nil
}

func (s *scenery) animate(delta float32) {
	for _, obj := range s.registry.Objects() {
		obj.Transform.Rotation += delta
	}
}

func (s *scenery) Release() {
	s.model.Release()
	s.pipeline.Release()
}

func main() {
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.WithError(err).Fatal("cpu profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.WithError(err).Fatal("cpu profile")
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.WithError(err).Fatal("trace")
		}
		if err := trace.Start(f); err != nil {
			log.WithError(err).Fatal("trace")
		}
		defer trace.Stop()
	}

	configuration, err := core.DefaultConfiguration().FromEnv()
	if err != nil {
		log.WithError(err).Fatal("configuration")
	}

	if err := run(configuration); err != nil {
		log.WithError(err).Fatal("korufx exited")
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.WithError(err).Fatal("memory profile")
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.WithError(err).Fatal("memory profile")
		}
		f.Close()
	}
}

func run(configuration core.Configuration) error {
	if err := window.Init(); err != nil {
		return err
	}
	defer window.Quit()

	win, err := window.New("KoruFX", configuration.Renderer.ScreenWidth, configuration.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	defer win.Destroy()

	instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, window.ProcAddr(), vkr.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: win.InstanceExtensions(),
	})
	if err != nil {
		return err
	}
	defer instance.Release()

	surface, err := win.CreateSurface(instance.Handle())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	device, err := vkr.NewDevice(instance, vkr.DeviceConfiguration{
		Extensions: configuration.Renderer.DeviceExtensions,
	})
	if err != nil {
		return err
	}
	defer device.Release()

	renderer, err := core.NewRenderer(device, win, configuration.Renderer)
	if err != nil {
		return err
	}
	defer renderer.Release()

	var drawables []core.Drawable
	if *shaders != "" {
		s, err := newScenery(device, renderer, *shaders)
		if err != nil {
			return err
		}
		if s != nil {
			defer func() {
				if err := device.WaitIdle(); err != nil {
					log.WithError(err).Warn("device did not idle")
				}
				s.Release()
			}()
			drawables = append(drawables, core.DrawableFunc(func(cmd gfx.CommandBuffer, slot int) {
				s.animate(0.01)
				s.system.Draw(cmd, slot)
			}))
		}
	}

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	/* Frame counter loop */
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.WithFields(log.Fields{
					"fps":      atomic.SwapInt64(&frameCounter, 0),
					"cgoCalls": runtime.NumCgoCall(),
				}).Debug("frame count")
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	/* Render loop */
	for !win.ShouldClose() {
		select {
		case <-timeService.EventTicker().C:
			win.PollEvents()
		case <-timeService.FpsTicker().C:
			if err := drawFrame(renderer, drawables); err != nil {
				return err
			}
		}
	}

	stats := renderer.Stats()
	log.WithFields(log.Fields{
		"frames":   stats.Frames,
		"skipped":  stats.Skipped,
		"rebuilds": stats.Rebuilds,
	}).Info("render loop exited")
	return nil
}

func drawFrame(renderer *core.Renderer, drawables []core.Drawable) error {
	f, err := renderer.BeginFrame()
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	renderer.BeginPass(f)
	renderer.Draw(f, drawables...)
	renderer.EndPass(f)
	if err := renderer.EndFrame(); err != nil {
		return err
	}
	atomic.AddInt64(&frameCounter, 1)
	return nil
}
