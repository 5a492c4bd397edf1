// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

// DeviceConfiguration is used to configure the logical device
type DeviceConfiguration struct {
	// PhysicalDevice indexes the devices reported
	// by Instance.PhysicalDevicesInfo
	PhysicalDevice int

	// Extensions are the device extensions to enable,
	// VK_KHR_swapchain is always required
	Extensions []string
}

// NewDevice creates a logical device on one of the instance's physical
// devices, with a single queue that can both render and present to the
// instance's surface.
func NewDevice(instance *Instance, cfg DeviceConfiguration) (*Device, error) {
	if instance.surface == nil {
		return nil, errors.New("vkr.NewDevice(): instance has no surface")
	}
	if cfg.PhysicalDevice < 0 || cfg.PhysicalDevice >= len(instance.availableDevices) {
		return nil, errors.Errorf("vkr.NewDevice(): no physical device %d", cfg.PhysicalDevice)
	}

	d := &Device{
		physicalDevice: instance.availableDevices[cfg.PhysicalDevice],
		surface:        instance.surface,
		log:            log.WithField("component", "vkr"),
	}

	queueFamily, err := d.findQueueFamily()
	if err != nil {
		return nil, err
	}
	d.queueFamily = queueFamily

	extensions := safeStrings(requiredExtensions(cfg.Extensions))
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if err := vk.Error(vk.CreateDevice(d.physicalDevice, &dci, nil, &d.device)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateDevice()")
	}
	vk.GetDeviceQueue(d.device, d.queueFamily, 0, &d.queue)

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.queueFamily,
	}
	if err := vk.Error(vk.CreateCommandPool(d.device, &cpci, nil, &d.commandPool)); err != nil {
		vk.DestroyDevice(d.device, nil)
		return nil, errors.Wrap(err, "vk.CreateCommandPool()")
	}

	d.allocator = NewMemoryAllocator(d.device, d.physicalDevice)

	if d.surfaceFormat, err = d.chooseSurfaceFormat(); err != nil {
		d.Release()
		return nil, err
	}
	if d.presentMode, err = d.choosePresentMode(); err != nil {
		d.Release()
		return nil, err
	}

	d.log.WithFields(log.Fields{
		"queueFamily": d.queueFamily,
		"format":      gfx.Format(d.surfaceFormat.Format),
		"presentMode": d.presentMode,
	}).Debug("logical device created")
	return d, nil
}

// Device is the Vulkan implementation of gfx.Device.
type Device struct {
	physicalDevice vk.PhysicalDevice
	surface        vk.Surface

	device      vk.Device
	queue       vk.Queue
	queueFamily uint32
	commandPool vk.CommandPool
	allocator   *MemoryAllocator

	surfaceFormat vk.SurfaceFormat
	presentMode   vk.PresentMode

	log *log.Entry
}

func requiredExtensions(extensions []string) []string {
	for _, ext := range extensions {
		if ext == vk.KhrSwapchainExtensionName {
			return extensions
		}
	}
	return append(extensions, vk.KhrSwapchainExtensionName)
}

func (d *Device) findQueueFamily() (uint32, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(d.physicalDevice, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return 0, errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queue families on GPU")
	}
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(d.physicalDevice, &queueFamilyCount, queueFamilies)

	for idx := uint32(0); idx < queueFamilyCount; idx++ {
		queueFamilies[idx].Deref()
		if queueFamilies[idx].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}

		var supportsPresent vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(d.physicalDevice, idx, d.surface, &supportsPresent)); err != nil {
			return 0, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceSupport()")
		}
		if supportsPresent.B() {
			return idx, nil
		}
	}
	return 0, errors.New("vkr.NewDevice(): no queue family can both render and present")
}

func (d *Device) capabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps)); err != nil {
		return caps, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceCapabilities()")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// DrawableExtent implements interface
func (d *Device) DrawableExtent(requested gfx.Extent2D) (gfx.Extent2D, error) {
	caps, err := d.capabilities()
	if err != nil {
		return gfx.Extent2D{}, err
	}
	return swapchainExtent(caps, requested), nil
}

// SupportsDepthFormat implements interface
func (d *Device) SupportsDepthFormat(format gfx.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physicalDevice, vk.Format(format), &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0
}

// NewSemaphore implements interface
func (d *Device) NewSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(d.device, &sci, nil, &semaphore)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateSemaphore()")
	}
	return &Semaphore{device: d.device, semaphore: semaphore}, nil
}

// NewFence implements interface
func (d *Device) NewFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.device, &fci, nil, &fence)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateFence()")
	}
	return &Fence{device: d.device, fence: fence}, nil
}

// AllocateCommandBuffers implements interface
func (d *Device) AllocateCommandBuffers(count int) ([]gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	buffers := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(d.device, &cbai, buffers)); err != nil {
		return nil, errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}

	commandBuffers := make([]gfx.CommandBuffer, count)
	for idx, buffer := range buffers {
		commandBuffers[idx] = &CommandBuffer{buffer: buffer}
	}
	return commandBuffers, nil
}

// FreeCommandBuffers implements interface
func (d *Device) FreeCommandBuffers(commandBuffers []gfx.CommandBuffer) {
	buffers := make([]vk.CommandBuffer, len(commandBuffers))
	for idx, cmd := range commandBuffers {
		buffers[idx] = cmd.(*CommandBuffer).buffer
	}
	vk.FreeCommandBuffers(d.device, d.commandPool, uint32(len(buffers)), buffers)
}

// Submit implements interface
func (d *Device) Submit(cmd gfx.CommandBuffer, wait, signal gfx.Semaphore, fence gfx.Fence) error {
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).semaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.(*CommandBuffer).buffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.(*Semaphore).semaphore},
	}}

	if err := vk.Error(vk.QueueSubmit(d.queue, 1, submit, fence.(*Fence).fence)); err != nil {
		return errors.Wrap(err, "vk.QueueSubmit()")
	}
	return nil
}

// WaitIdle implements interface
func (d *Device) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(d.device)); err != nil {
		return errors.Wrap(err, "vk.DeviceWaitIdle()")
	}
	return nil
}

// Release destroys the command pool and the logical device.
// Everything created from the device must be released first.
func (d *Device) Release() {
	vk.DestroyCommandPool(d.device, d.commandPool, nil)
	vk.DestroyDevice(d.device, nil)
}

// Semaphore is the Vulkan implementation of gfx.Semaphore.
type Semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Release implements interface
func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}

// Fence is the Vulkan implementation of gfx.Fence.
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Wait implements interface
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	ns := uint64(math.MaxUint64)
	if timeout >= 0 {
		ns = uint64(timeout.Nanoseconds())
	}

	switch result := vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, ns); result {
	case vk.Success:
		return true, nil
	case vk.Timeout:
		return false, nil
	default:
		return false, errors.Wrap(vk.Error(result), "vk.WaitForFences()")
	}
}

// Reset implements interface
func (f *Fence) Reset() error {
	if err := vk.Error(vk.ResetFences(f.device, 1, []vk.Fence{f.fence})); err != nil {
		return errors.Wrap(err, "vk.ResetFences()")
	}
	return nil
}

// Release implements interface
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}
