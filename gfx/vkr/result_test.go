// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

func TestClassify(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		result vk.Result
		status gfx.Status
	}{
		{vk.Success, gfx.StatusOK},
		{vk.Suboptimal, gfx.StatusSuboptimal},
		{vk.ErrorOutOfDate, gfx.StatusOutOfDate},
	} {
		status, err := classify("vk.QueuePresent()", test.result)
		c.Assert(err, qt.IsNil)
		c.Assert(status, qt.Equals, test.status)
	}

	for _, result := range []vk.Result{vk.ErrorDeviceLost, vk.ErrorSurfaceLost, vk.ErrorOutOfDeviceMemory} {
		_, err := classify("vk.QueuePresent()", result)
		c.Assert(err, qt.ErrorMatches, `vk.QueuePresent\(\): .*`)
	}
}
