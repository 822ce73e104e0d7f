package capture

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// MaxPacketSize is the largest frame a Queue carries.
const MaxPacketSize = 64

// Packet is a captured frame copied out of the receive buffer.
type Packet struct {
	Len  int
	Data [MaxPacketSize]byte
}

// Bytes returns the valid part of the packet.
func (p *Packet) Bytes() []byte {
	return p.Data[:p.Len]
}

// Queue hands frames from the completion path to one consumer.
// TrySend never blocks; frames that do not fit are dropped and counted.
type Queue struct {
	ring   lfq.SPSC[Packet]
	notify chan struct{}
	// serializes Receive and Purge on the consumer side of the ring.
	consumer sync.Mutex

	sent    atomix.Uint32
	dropped atomix.Uint32
}

// QueueStats reports queue counters.
type QueueStats struct {
	Sent    uint32
	Dropped uint32
}

// MinQueueDepth is the smallest ring a Queue allocates.
const MinQueueDepth = 2

// NewQueue creates a queue holding at least depth packets.
func NewQueue(depth int) *Queue {
	if depth < MinQueueDepth {
		depth = MinQueueDepth
	}
	q := &Queue{notify: make(chan struct{}, 1)}
	q.ring.Init(depth)
	return q
}

// TrySend copies p into the queue. It returns false when the queue is
// full or p is larger than MaxPacketSize.
func (q *Queue) TrySend(p []byte) bool {
	if len(p) > MaxPacketSize {
		q.dropped.Add(1)
		return false
	}
	var pkt Packet
	pkt.Len = copy(pkt.Data[:], p)
	if err := q.ring.Enqueue(&pkt); err != nil {
		q.dropped.Add(1)
		return false
	}
	q.sent.Add(1)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) tryReceive() (Packet, bool) {
	q.consumer.Lock()
	defer q.consumer.Unlock()
	pkt, err := q.ring.Dequeue()
	return pkt, err == nil
}

// Receive waits for the next packet. A zero timeout waits until ctx is
// done; otherwise ErrTimeout is returned when nothing arrives in time.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (Packet, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		if pkt, ok := q.tryReceive(); ok {
			return pkt, nil
		}
		select {
		case <-q.notify:
		case <-expired:
			if pkt, ok := q.tryReceive(); ok {
				return pkt, nil
			}
			return Packet{}, ErrTimeout
		case <-ctx.Done():
			return Packet{}, ctx.Err()
		}
	}
}

// Purge discards all queued packets and returns how many were dropped.
func (q *Queue) Purge() (n int) {
	q.consumer.Lock()
	defer q.consumer.Unlock()
	for {
		if _, err := q.ring.Dequeue(); err != nil {
			break
		}
		n++
	}
	select {
	case <-q.notify:
	default:
	}
	return
}

// Stats returns the queue counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{Sent: q.sent.Load(), Dropped: q.dropped.Load()}
}
