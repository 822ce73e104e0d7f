package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePort struct {
	lock  sync.Mutex
	armed [][]byte
	err   error
}

func (p *fakePort) Arm(buf []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.err != nil {
		return p.err
	}
	p.armed = append(p.armed, buf)
	return nil
}

func (p *fakePort) last() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.armed[len(p.armed)-1]
}

func TestPipelineClassifiers(t *testing.T) {
	port := &fakePort{}
	p := NewPipeline(port, 8)
	require.Equal(t, Idle, p.State())

	var calls []string
	var got []byte
	require.NoError(t, p.Register("a", ClassifierFunc(func(buf []byte) bool {
		calls = append(calls, "a")
		return len(buf) == 2
	})))
	require.NoError(t, p.Register("b", ClassifierFunc(func(buf []byte) bool {
		calls = append(calls, "b")
		got = append([]byte(nil), buf...)
		return true
	})))
	require.NoError(t, p.Register("c", ClassifierFunc(func([]byte) bool {
		calls = append(calls, "c")
		return true
	})))
	require.Equal(t, ErrAlreadyRegistered, p.Register("a", ClassifierFunc(func([]byte) bool { return false })))

	require.NoError(t, p.Start())
	require.Equal(t, ErrNotIdle, p.Start())
	require.Equal(t, Armed, p.State())

	first := port.last()
	copy(first, []byte{1, 2, 3})
	p.Complete(3)
	require.Equal(t, []string{"a", "b"}, calls)
	require.Equal(t, []byte{1, 2, 3}, got)
	require.Equal(t, Armed, p.State())
	second := port.last()
	require.NotSame(t, &first[0], &second[0])

	calls = nil
	p.Complete(2)
	require.Equal(t, []string{"a"}, calls)
	require.Same(t, &first[0], &port.last()[0])

	require.NoError(t, p.Unregister("a"))
	require.Equal(t, ErrNotFound, p.Unregister("a"))
	require.NoError(t, p.Unregister("b"))
	require.NoError(t, p.Unregister("c"))
	p.Complete(100)

	st := p.Stats()
	require.Equal(t, uint32(3), st.Completions)
	require.Equal(t, uint32(2), st.Claimed)
	require.Equal(t, uint32(1), st.Unclaimed)
	require.Equal(t, 0, st.Classifiers)
}

func TestPipelineRearm(t *testing.T) {
	port := &fakePort{}
	p := NewPipeline(port, 4)

	p.Complete(1)
	require.Equal(t, uint32(1), p.Stats().Spurious)

	require.NoError(t, p.Start())
	armed := port.last()
	p.Fail(errors.New("framing"))
	require.Equal(t, Armed, p.State())
	require.Same(t, &armed[0], &port.last()[0])

	port.err = errors.New("dma busy")
	p.Complete(4)
	require.Equal(t, Idle, p.State())
	st := p.Stats()
	require.Equal(t, uint32(1), st.Failures)
	require.Equal(t, uint32(1), st.RearmFailures)

	port.err = nil
	require.NoError(t, p.Start())
	require.Equal(t, Armed, p.State())
}

func TestQueue(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	_, err := q.Receive(ctx, 5*time.Millisecond)
	require.Equal(t, ErrTimeout, err)

	require.True(t, q.TrySend([]byte{1}))
	require.True(t, q.TrySend([]byte{2, 2}))
	require.False(t, q.TrySend(make([]byte, MaxPacketSize+1)))

	pkt, err := q.Receive(ctx, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, pkt.Bytes())
	pkt, err = q.Receive(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 2}, pkt.Bytes())

	const total = 100
	accepted := 0
	for i := 0; i < total; i++ {
		if q.TrySend([]byte{byte(i)}) {
			accepted++
		}
	}
	require.Greater(t, accepted, 0)
	require.Less(t, accepted, total)
	require.Equal(t, accepted, q.Purge())
	require.Equal(t, 0, q.Purge())

	st := q.Stats()
	require.Equal(t, uint32(2+accepted), st.Sent)
	require.Equal(t, uint32(1+total-accepted), st.Dropped)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Receive(cctx, 0)
	require.Equal(t, context.Canceled, err)
}

func TestQueueMinDepth(t *testing.T) {
	testCases := []struct {
		depth int
	}{{-1}, {0}, {1}, {2}}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("depth %d", tc.depth), func(t *testing.T) {
			var q *Queue
			require.NotPanics(t, func() { q = NewQueue(tc.depth) })
			require.True(t, q.TrySend(make([]byte, MaxPacketSize)))
			pkt, err := q.Receive(context.Background(), time.Millisecond)
			require.NoError(t, err)
			require.Equal(t, MaxPacketSize, pkt.Len)
		})
	}
}

func TestQueueWakesReceiver(t *testing.T) {
	skipRace(t)
	q := NewQueue(2)
	got := make(chan Packet, 1)
	go func() {
		pkt, err := q.Receive(context.Background(), time.Second)
		if err == nil {
			got <- pkt
		}
		close(got)
	}()
	time.Sleep(10 * time.Millisecond)
	require.True(t, q.TrySend([]byte{7}))
	select {
	case pkt, ok := <-got:
		require.True(t, ok)
		require.Equal(t, []byte{7}, pkt.Bytes())
	case <-time.After(2 * time.Second):
		t.Fatal("receiver not woken")
	}
}

type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestStreamPort(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{{1, 2}, {3, 4, 5}, {6}}}
	port := NewStreamPort("test", r)
	p := NewPipeline(port, 8)
	var frames [][]byte
	require.NoError(t, p.Register("all", ClassifierFunc(func(buf []byte) bool {
		frames = append(frames, append([]byte(nil), buf...))
		return true
	})))
	require.NoError(t, p.Start())
	require.Equal(t, ErrBusy, port.Arm(make([]byte, 1)))

	require.NoError(t, port.Run(context.Background(), p))
	require.Equal(t, [][]byte{{1, 2}, {3, 4, 5}, {6}}, frames)
	require.Equal(t, uint32(3), p.Stats().Claimed)
}
