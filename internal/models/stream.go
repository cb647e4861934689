package models

import "sync"

// Stream delivers completion text fragments as the server emits them. It
// is finite and not restartable. A consumer that abandons the stream
// before C closes must call Close to release the underlying connection.
type Stream struct {
	// C yields text fragments in arrival order and is closed when the
	// stream ends, for any reason.
	C <-chan string

	mu  sync.Mutex
	err error

	done      chan struct{}
	closeOnce sync.Once
	closeFn   func()
}

// NewStream wires a fragment channel to a connection-release function.
// Providers send on the writable side of c and close it when done.
func NewStream(c <-chan string, closeFn func()) *Stream {
	return &Stream{C: c, done: make(chan struct{}), closeFn: closeFn}
}

// Done is closed by Close. Producers select on it alongside their sends
// so a consumer that abandons the stream cannot strand them mid-send.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Fail records the terminal error. Providers call it before closing C when
// the transport dies mid-body. After Close it is a no-op: a deliberately
// abandoned stream reports no error.
func (s *Stream) Fail(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the terminal transport error, if any. Meaningful once C has
// been drained or closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the underlying connection and wakes the producer. Safe
// to call more than once and after normal completion.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.closeFn()
		}
	})
	return nil
}
