package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// FrameSource yields the frame the next detection cycle should analyze.
type FrameSource interface {
	CurrentFrame(ctx context.Context) ([]byte, error)
}

// FrameBuffer holds the latest frame pushed by the client. Older frames are
// dropped, so a slow loop always analyzes the most recent image.
type FrameBuffer struct {
	mu        sync.RWMutex
	frame     []byte
	updatedAt time.Time
	createdAt time.Time
	now       func() time.Time
}

func NewFrameBuffer() *FrameBuffer {
	return newFrameBuffer(time.Now)
}

func newFrameBuffer(now func() time.Time) *FrameBuffer {
	return &FrameBuffer{now: now, createdAt: now()}
}

// Push replaces the buffered frame with a copy of frame
func (b *FrameBuffer) Push(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	b.mu.Lock()
	b.frame = buf
	b.updatedAt = b.now()
	b.mu.Unlock()
}

// CurrentFrame returns domain.ErrNoFrameAvailable until the first Push
func (b *FrameBuffer) CurrentFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.frame == nil {
		return nil, domain.ErrNoFrameAvailable
	}
	return b.frame, nil
}

// LastActivity is the time of the last Push, or of creation when nothing was pushed
func (b *FrameBuffer) LastActivity() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updatedAt.IsZero() {
		return b.createdAt
	}
	return b.updatedAt
}

// LastFrameAt is nil until the first Push
func (b *FrameBuffer) LastFrameAt() *time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updatedAt.IsZero() {
		return nil
	}
	t := b.updatedAt
	return &t
}
