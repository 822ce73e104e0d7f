package capture

import (
	"io"
	"sync"
	"time"
)

// DefaultIdleGap is the silence ending a frame on a serial line.
const DefaultIdleGap = time.Millisecond

const idleChunkSize = 64

// IdleReader segments a byte stream into frames separated by idle gaps,
// the way a UART idle-line interrupt does. Each Read returns at most one
// frame. Bytes beyond the buffer start the next frame.
type IdleReader struct {
	Gap time.Duration

	r       io.Reader
	chunkCh chan []byte
	errCh   chan error
	done    chan struct{}
	once    sync.Once

	pending []byte
	err     error
}

// NewIdleReader starts reading r in the background.
func NewIdleReader(r io.Reader, gap time.Duration) *IdleReader {
	if gap <= 0 {
		gap = DefaultIdleGap
	}
	ir := &IdleReader{
		Gap:     gap,
		r:       r,
		chunkCh: make(chan []byte),
		errCh:   make(chan error, 1),
		done:    make(chan struct{}),
	}
	go ir.readLoop()
	return ir
}

func (ir *IdleReader) readLoop() {
	for {
		buf := make([]byte, idleChunkSize)
		n, err := ir.r.Read(buf)
		if n > 0 {
			select {
			case ir.chunkCh <- buf[:n]:
			case <-ir.done:
				return
			}
		}
		if err != nil {
			ir.errCh <- err
			return
		}
	}
}

// Read blocks for the first byte of a frame, then collects bytes until
// the line is idle for Gap or p is full. It must not be called
// concurrently.
func (ir *IdleReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(p, ir.pending)
	ir.pending = ir.pending[n:]
	if n == 0 {
		if ir.err != nil {
			return 0, ir.err
		}
		select {
		case chunk := <-ir.chunkCh:
			n = ir.fill(p, 0, chunk)
		case err := <-ir.errCh:
			ir.err = err
			return 0, err
		case <-ir.done:
			return 0, io.ErrClosedPipe
		}
	}

	timer := time.NewTimer(ir.Gap)
	defer timer.Stop()
	for n < len(p) && len(ir.pending) == 0 {
		select {
		case chunk := <-ir.chunkCh:
			n = ir.fill(p, n, chunk)
			timer.Reset(ir.Gap)
		case <-timer.C:
			return n, nil
		case err := <-ir.errCh:
			// reported once the frame is delivered.
			ir.err = err
			return n, nil
		case <-ir.done:
			return n, nil
		}
	}
	return n, nil
}

func (ir *IdleReader) fill(p []byte, n int, chunk []byte) int {
	c := copy(p[n:], chunk)
	if c < len(chunk) {
		ir.pending = append(ir.pending, chunk[c:]...)
	}
	return n + c
}

// Close stops the background reader and closes the underlying reader if
// it is an io.Closer.
func (ir *IdleReader) Close() (err error) {
	ir.once.Do(func() {
		close(ir.done)
		if c, ok := ir.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return
}
