package scanning

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ResourceManager bounds the number of probes in flight.
type ResourceManager interface {
	// Acquire blocks until a probe slot is free or ctx is done.
	Acquire(ctx context.Context, probeID string) error

	// Release frees the slot held by probeID.
	Release(probeID string)

	// Active returns the number of slots currently held.
	Active() int

	// Available returns the number of free slots.
	Available() int

	// Close releases every slot and rejects further acquisitions.
	Close() error
}

// FixedResourceManager implements ResourceManager with a fixed number of slots.
type FixedResourceManager struct {
	capacity  int
	semaphore chan struct{}
	active    map[string]time.Time
	mutex     sync.RWMutex
	closed    bool
}

// NewFixedResourceManager creates a resource manager with the given capacity.
func NewFixedResourceManager(capacity int) *FixedResourceManager {
	if capacity <= 0 {
		capacity = 1
	}

	return &FixedResourceManager{
		capacity:  capacity,
		semaphore: make(chan struct{}, capacity),
		active:    make(map[string]time.Time),
	}
}

// Acquire takes a slot for probeID.
func (rm *FixedResourceManager) Acquire(ctx context.Context, probeID string) error {
	rm.mutex.RLock()
	closed := rm.closed
	rm.mutex.RUnlock()
	if closed {
		return fmt.Errorf("resource manager is closed")
	}

	// A cancelled context must never win a race against a free slot.
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case rm.semaphore <- struct{}{}:
		rm.mutex.Lock()
		rm.active[probeID] = time.Now()
		rm.mutex.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the slot held by probeID. Unknown IDs are ignored.
func (rm *FixedResourceManager) Release(probeID string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if _, exists := rm.active[probeID]; !exists {
		return
	}
	delete(rm.active, probeID)

	select {
	case <-rm.semaphore:
	default:
	}
}

// Active returns the number of held slots.
func (rm *FixedResourceManager) Active() int {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	return len(rm.active)
}

// Available returns the number of free slots.
func (rm *FixedResourceManager) Available() int {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	return rm.capacity - len(rm.active)
}

// Close releases every slot. Further Acquire calls fail.
func (rm *FixedResourceManager) Close() error {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if rm.closed {
		return nil
	}
	rm.closed = true
	rm.active = make(map[string]time.Time)

	for {
		select {
		case <-rm.semaphore:
		default:
			return nil
		}
	}
}
