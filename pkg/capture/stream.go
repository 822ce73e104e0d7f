package capture

import (
	"context"
	"errors"
	"io"
	"sync"

	"code.hybscloud.com/iox"
	"github.com/golang/glog"
)

// StreamPort is a Port over a byte stream such as a serial device.
// Every successful read into the armed buffer is one completion.
type StreamPort struct {
	Name string

	r    io.Reader
	lock sync.Mutex
	buf  []byte
}

// NewStreamPort wraps r.
func NewStreamPort(name string, r io.Reader) *StreamPort {
	return &StreamPort{Name: name, r: r}
}

// Arm implements Port.
func (s *StreamPort) Arm(buf []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buf != nil {
		return ErrBusy
	}
	s.buf = buf
	return nil
}

func (s *StreamPort) take() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	buf := s.buf
	s.buf = nil
	return buf
}

// Run reads the stream and reports to c until the reader hits EOF or ctx
// is done. A blocked Read is only interrupted by closing the reader.
func (s *StreamPort) Run(ctx context.Context, c Completer) error {
	var bo iox.Backoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := s.take()
		if buf == nil {
			bo.Wait()
			continue
		}
		bo.Reset()
		n, err := s.r.Read(buf)
		switch {
		case err == nil:
			c.Complete(n)
		case errors.Is(err, io.EOF):
			if n > 0 {
				c.Complete(n)
			}
			glog.Infof("%s: end of stream", s.Name)
			return nil
		default:
			c.Fail(err)
			return err
		}
	}
}
