// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
)

// package errors
var (
	ErrFormatChanged    = errors.New("presentation chain image or depth format has changed")
	ErrDegenerateExtent = errors.New("presentation chain extent has a zero dimension")
	ErrNoDepthFormat    = errors.New("none of the configured depth formats is supported")
	ErrTooFewImages     = errors.New("swapchain reported fewer than two images")
)

// DeviceError reports a failure of the graphics device that the
// renderer cannot recover from. The session should be terminated.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

func deviceError(op string, err error) error {
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}

// LifecycleViolation is the panic value raised when the frame
// methods of a Renderer are called out of order or with a
// handle that belongs to another frame.
type LifecycleViolation struct {
	Op     string
	State  FrameState
	Reason string
}

func (v *LifecycleViolation) Error() string {
	return fmt.Sprintf("%s in state %s: %s", v.Op, v.State, v.Reason)
}

func violate(op string, state FrameState, reason string) {
	panic(&LifecycleViolation{Op: op, State: state, Reason: reason})
}
