// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

func TestFindMemoryType(t *testing.T) {
	c := qt.New(t)

	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	types := []vk.MemoryPropertyFlags{deviceLocal, hostVisible, deviceLocal | hostVisible}

	idx, err := findMemoryType(types, 0x7, deviceLocal)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, uint32(0))

	idx, err = findMemoryType(types, 0x7, hostVisible)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, uint32(1))

	// The filter excludes the first two types.
	idx, err = findMemoryType(types, 0x4, deviceLocal)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, uint32(2))

	_, err = findMemoryType(types, 0x1, hostVisible)
	c.Assert(err, qt.ErrorMatches, "suitable memory type not found .*")
}
