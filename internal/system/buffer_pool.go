package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool reuses *image.RGBA buffers of equal size between slide
// renderings. Buffers handed out are not cleared.
type FramePool struct {
	mu        sync.Mutex
	pools     map[image.Rectangle]*sync.Pool
	allocated atomic.Int64
}

// NewFramePool returns an empty pool.
func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var frames = NewFramePool()

// GetFrame returns a buffer for rect from the shared pool.
func GetFrame(rect image.Rectangle) *image.RGBA { return frames.Get(rect) }

// PutFrame hands a buffer back to the shared pool.
func PutFrame(img *image.RGBA) { frames.Put(img) }

// FramesAllocated reports how many buffers the shared pool has created.
func FramesAllocated() int64 { return frames.Allocated() }

func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.Lock()
	pool, ok := p.pools[rect]
	if !ok {
		pool = &sync.Pool{New: func() any {
			p.allocated.Add(1)
			return image.NewRGBA(rect)
		}}
		p.pools[rect] = pool
	}
	p.mu.Unlock()
	return pool.Get().(*image.RGBA)
}

// Put keeps img for a later Get of the same rectangle. Sizes the pool has
// never handed out are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.Lock()
	pool, ok := p.pools[img.Rect]
	p.mu.Unlock()
	if ok {
		pool.Put(img)
	}
}

// Allocated is the number of buffers created so far.
func (p *FramePool) Allocated() int64 { return p.allocated.Load() }
