// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package scene holds the objects drawn each frame and
// the render system that records them.
package scene

import (
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korufx/gfx"
)

// Model is drawable geometry
type Model interface {

	// Draw binds the model's buffers and issues its draw.
	Draw(cmd gfx.CommandBuffer)
}

// Pipeline is a graphics pipeline accepting PushData
type Pipeline interface {

	// Bind binds the pipeline for the following draws.
	Bind(cmd gfx.CommandBuffer)

	// Push sets the push constants of the following draws.
	Push(cmd gfx.CommandBuffer, data []byte)
}

// ID identifies an object within a Registry.
type ID uint32

// Transform2D places an object on the screen
type Transform2D struct {
	Translation glm.Vec2
	Scale       glm.Vec2

	// Rotation in radians
	Rotation float32
}

// Identity returns a transform that leaves objects as they are.
func Identity() Transform2D {
	return Transform2D{Scale: glm.Vec2{1, 1}}
}

// Mat2 returns the rotation and scale as a matrix,
// scale is applied first.
func (t Transform2D) Mat2() glm.Mat2 {
	return glm.Rotate2D(t.Rotation).Mul2(glm.Diag2(t.Scale))
}

// Object is anything drawn by the render system
type Object struct {
	id ID

	Model     Model
	Color     glm.Vec3
	Transform Transform2D
}

// ID returns the object's identifier.
func (o *Object) ID() ID {
	return o.id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Registry creates objects and keeps them in creation order. IDs are
// never reused within a registry. A Registry is not safe for concurrent
// use, it belongs to the goroutine that renders.
type Registry struct {
	next    ID
	objects []*Object
}

// Create adds a new object with an identity transform.
func (r *Registry) Create() *Object {
	obj := &Object{
		id:        r.next,
		Transform: Identity(),
	}
	r.next++
	r.objects = append(r.objects, obj)
	return obj
}

// Get finds the object with id.
func (r *Registry) Get(id ID) (*Object, bool) {
	for _, obj := range r.objects {
		if obj.id == id {
			return obj, true
		}
	}
	return nil, false
}

// Remove deletes the object with id, reporting whether it existed.
func (r *Registry) Remove(id ID) bool {
	for idx, obj := range r.objects {
		if obj.id == id {
			r.objects = append(r.objects[:idx], r.objects[idx+1:]...)
			return true
		}
	}
	return false
}

// Objects returns the objects in creation order. The slice
// must not be modified.
func (r *Registry) Objects() []*Object {
	return r.objects
}

// Len returns the number of objects.
func (r *Registry) Len() int {
	return len(r.objects)
}
