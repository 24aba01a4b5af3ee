package services

import (
	"time"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// Batcher groups encoded actions into batches bounded by count, bytes and
// the age of the oldest buffered item. Items are never split or
// reordered. A Batcher is owned by a single goroutine.
type Batcher struct {
	limits domain.BatchLimits
	now    func() time.Time
	open   domain.Batch
}

// NewBatcher creates a batcher. Unset limits take their defaults.
func NewBatcher(limits domain.BatchLimits) *Batcher {
	return &Batcher{
		limits: limits.WithDefaults(),
		now:    time.Now,
	}
}

// Limits returns the effective limits.
func (b *Batcher) Limits() domain.BatchLimits {
	return b.limits
}

// Add buffers an item and returns the batches it closed, oldest first.
// An item that would push the open batch past the byte limit closes that
// batch first; an item larger than the limit on its own forms a batch by
// itself.
func (b *Batcher) Add(item domain.Item) []domain.Batch {
	var closed []domain.Batch

	if len(b.open.Items) > 0 && b.open.ByteSize+item.Size() > b.limits.Bytes {
		closed = append(closed, b.take())
	}

	if len(b.open.Items) == 0 {
		b.open.OpenedAt = b.now()
	}
	b.open.Items = append(b.open.Items, item)
	b.open.ByteSize += item.Size()

	if len(b.open.Items) >= b.limits.Count || b.open.ByteSize >= b.limits.Bytes {
		closed = append(closed, b.take())
	}
	return closed
}

// Deadline returns when the open batch must be flushed. ok is false when
// nothing is buffered.
func (b *Batcher) Deadline() (deadline time.Time, ok bool) {
	if len(b.open.Items) == 0 {
		return time.Time{}, false
	}
	return b.open.OpenedAt.Add(b.limits.Time), true
}

// Expired reports whether the oldest buffered item has waited out the
// time limit at now.
func (b *Batcher) Expired(now time.Time) bool {
	deadline, ok := b.Deadline()
	return ok && !now.Before(deadline)
}

// Flush closes the open batch. ok is false when nothing is buffered.
func (b *Batcher) Flush() (batch domain.Batch, ok bool) {
	if len(b.open.Items) == 0 {
		return domain.Batch{}, false
	}
	return b.take(), true
}

// Pending returns the number of buffered items.
func (b *Batcher) Pending() int {
	return len(b.open.Items)
}

func (b *Batcher) take() domain.Batch {
	batch := b.open
	b.open = domain.Batch{}
	return batch
}

// Run batches items from in onto out until in is closed, then flushes
// what is left and closes out. Sends to out block, so a slow consumer
// holds back the producer.
func (b *Batcher) Run(in <-chan domain.Item, out chan<- domain.Batch) {
	defer close(out)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var expire <-chan time.Time
		if deadline, ok := b.Deadline(); ok {
			timer.Reset(time.Until(deadline))
			expire = timer.C
		}

		select {
		case item, ok := <-in:
			if !ok {
				if batch, ok := b.Flush(); ok {
					out <- batch
				}
				return
			}
			for _, batch := range b.Add(item) {
				out <- batch
			}
		case <-expire:
			if !b.Expired(b.now()) {
				continue
			}
			if batch, ok := b.Flush(); ok {
				out <- batch
			}
		}
	}
}
