// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/pagealloc"
	"github.com/gogpu/gpuframe/queue"
	"github.com/gogpu/gpuframe/upload"
)

// Context owns the queues, the two page managers, the upload manager and the
// frames in flight of one device.
//
// Context methods are safe for concurrent use. A Frame is not: it belongs to
// the goroutine that began it.
type Context struct {
	device     gpucore.Device
	ownsDevice bool
	backend    string
	log        *slog.Logger

	queues   *queue.Manager
	gpuPages *pagealloc.PageManager
	cpuPages *pagealloc.PageManager
	uploads  *upload.Manager

	mu     sync.Mutex
	frames []*Frame
	next   uint64
	failed error
	closed bool
}

// NewContext creates a Context on dev. The caller keeps ownership of dev.
func NewContext(dev gpucore.Device, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	queues, err := queue.NewManager(dev)
	if err != nil {
		return nil, fmt.Errorf("gpuframe: %w", err)
	}
	c := &Context{
		device: dev,
		log:    log,
		queues: queues,
		gpuPages: pagealloc.NewPageManager(dev, pagealloc.ClassGPUExclusive, queues,
			pagealloc.WithPageSize(o.gpuPageSize)),
		cpuPages: pagealloc.NewPageManager(dev, pagealloc.ClassCPUWritable, queues,
			pagealloc.WithPageSize(o.cpuPageSize)),
	}
	c.uploads, err = upload.NewManager(dev, queues, upload.WithCapacity(o.stagingCapacity))
	if err != nil {
		queues.Close()
		return nil, fmt.Errorf("gpuframe: %w", err)
	}

	c.frames = make([]*Frame, o.framesInFlight)
	for i := range c.frames {
		c.frames[i] = &Frame{
			ctx:  c,
			slot: i,
			gpu:  pagealloc.NewAllocator(c.gpuPages),
			cpu:  pagealloc.NewAllocator(c.cpuPages),
		}
	}

	c.log.Info("gpuframe: context created",
		"framesInFlight", o.framesInFlight,
		"stagingCapacity", o.stagingCapacity,
		"gpuPageSize", o.gpuPageSize,
		"cpuPageSize", o.cpuPageSize)
	return c, nil
}

// Open opens a device with the named backend and creates a Context that owns
// it. An empty name selects the best available backend. Backends register
// themselves on import:
//
//	import _ "github.com/gogpu/gpuframe/backend/software"
func Open(name string, opts ...Option) (*Context, error) {
	var (
		dev gpucore.Device
		err error
	)
	if name == "" {
		dev, name, err = backend.Default()
	} else {
		dev, err = backend.Open(name)
	}
	if err != nil {
		return nil, fmt.Errorf("gpuframe: %w", err)
	}

	c, err := NewContext(dev, opts...)
	if err != nil {
		_ = backend.Close(dev)
		return nil, err
	}
	c.ownsDevice = true
	c.backend = name
	c.log.Info("gpuframe: backend selected", "backend", name)
	return c, nil
}

// Device returns the device the Context runs on.
func (c *Context) Device() gpucore.Device { return c.device }

// Backend returns the backend name if the Context was created by Open.
func (c *Context) Backend() string { return c.backend }

// Queues returns the queue manager.
func (c *Context) Queues() *queue.Manager { return c.queues }

// Uploads returns the upload manager.
func (c *Context) Uploads() *upload.Manager { return c.uploads }

// PageManager returns the page manager of class.
func (c *Context) PageManager(class pagealloc.Class) *pagealloc.PageManager {
	if class == pagealloc.ClassCPUWritable {
		return c.cpuPages
	}
	return c.gpuPages
}

// NewLinearAllocator returns an allocator of class for a recording context
// outside the frame loop, such as a worker goroutine. The caller calls
// CleanupUsedPages after each submission.
func (c *Context) NewLinearAllocator(class pagealloc.Class) *pagealloc.Allocator {
	return pagealloc.NewAllocator(c.PageManager(class))
}

// FramesInFlight returns the number of frame slots.
func (c *Context) FramesInFlight() int { return len(c.frames) }

// BeginFrame starts the next frame. It blocks until the GPU finished the
// frame that last used the same slot, then opens a graphics command list.
func (c *Context) BeginFrame() (*Frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.failed != nil {
		err := c.failed
		c.mu.Unlock()
		return nil, err
	}
	f := c.frames[c.next%uint64(len(c.frames))]
	if f.active {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: slot %d", ErrFrameActive, f.slot)
	}
	f.active = true
	f.index = c.next
	c.next++
	prev := f.fence
	c.mu.Unlock()

	if prev != 0 {
		c.queues.WaitForFence(prev)
	}

	list, alloc, err := c.queues.CreateNewCommandList(gpucore.EngineGraphics)
	if err != nil {
		c.mu.Lock()
		f.active = false
		c.mu.Unlock()
		return nil, c.fail(err)
	}
	list.SetName(fmt.Sprintf("Frame %d", f.index))
	f.list = list
	f.alloc = alloc
	return f, nil
}

// FlushUploads executes the staged uploads and reclaims the batch once its
// copy has completed. With wait set it blocks until the copy completes.
func (c *Context) FlushUploads(wait bool) error {
	if err := c.uploads.Execute(wait); err != nil {
		return c.fail(err)
	}
	if c.uploads.IsComplete() {
		if err := c.uploads.Reset(); err != nil {
			return c.fail(err)
		}
	}
	return nil
}

// Err returns the error that poisoned the Context, or nil.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// fail poisons the Context with err and returns the poisoned error.
func (c *Context) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed == nil {
		c.failed = fmt.Errorf("%w: %w", ErrContextFailed, err)
		c.log.Error("gpuframe: context failed", "err", err)
	}
	return c.failed
}

// Close waits for the GPU to go idle and releases everything the Context
// created, including the device if the Context was created by Open.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.queues.WaitForIdle()
	for _, f := range c.frames {
		f.abandon()
	}
	c.uploads.Close()
	c.gpuPages.Close()
	c.cpuPages.Close()
	c.queues.Close()

	if c.ownsDevice {
		if err := backend.Close(c.device); err != nil {
			c.log.Warn("gpuframe: device close failed", "err", err)
			return fmt.Errorf("gpuframe: close device: %w", err)
		}
	}
	c.log.Info("gpuframe: context closed", "frames", c.next)
	return nil
}
