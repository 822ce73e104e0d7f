package capture

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type chunkStream struct {
	ch     chan []byte
	closed bool
}

func (s *chunkStream) Read(p []byte) (int, error) {
	b, ok := <-s.ch
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (s *chunkStream) Close() error {
	s.closed = true
	return nil
}

func readFrames(r io.Reader, size int) (<-chan string, <-chan error) {
	frames, errCh := make(chan string, 16), make(chan error, 1)
	go func() {
		for {
			buf := make([]byte, size)
			n, err := r.Read(buf)
			if n > 0 {
				frames <- string(buf[:n])
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()
	return frames, errCh
}

func TestIdleReaderFrames(t *testing.T) {
	s := &chunkStream{ch: make(chan []byte)}
	ir := NewIdleReader(s, 20*time.Millisecond)
	frames, errCh := readFrames(ir, 32)

	s.ch <- []byte("ab")
	s.ch <- []byte("cd")
	s.ch <- []byte("e")
	require.Equal(t, "abcde", <-frames)

	time.Sleep(60 * time.Millisecond)
	s.ch <- []byte("xyz")
	require.Equal(t, "xyz", <-frames)
	close(s.ch)
	require.ErrorIs(t, <-errCh, io.EOF)

	require.NoError(t, ir.Close())
	require.True(t, s.closed)
}

func TestIdleReaderOverflow(t *testing.T) {
	s := &chunkStream{ch: make(chan []byte, 1)}
	ir := NewIdleReader(s, 20*time.Millisecond)
	defer ir.Close()

	s.ch <- []byte("abcdef")
	buf := make([]byte, 4)
	n, err := ir.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(buf[:n]))
	n, err = ir.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ef", string(buf[:n]))
}
