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

// classify splits the result of acquire and present into the
// statuses a renderer recovers from and errors it cannot.
func classify(op string, result vk.Result) (gfx.Status, error) {
	switch result {
	case vk.Success:
		return gfx.StatusOK, nil
	case vk.Suboptimal:
		return gfx.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return gfx.StatusOutOfDate, nil
	}
	if err := vk.Error(result); err != nil {
		return gfx.StatusOK, errors.Wrap(err, op)
	}
	return gfx.StatusOK, errors.Errorf("%s: unexpected result %d", op, result)
}
