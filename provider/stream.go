package provider

// chanStream adapts a push-style client callback into the pull-based Stream
// contract. The producing goroutine blocks on the unbuffered channel, so
// generation only advances when the consumer asks for the next unit.
type chanStream struct {
	ch      chan Chunk
	done    chan struct{}
	errc    chan error
	current Chunk
	err     error
	closed  bool
}

func newChanStream() *chanStream {
	return &chanStream{
		ch:   make(chan Chunk),
		done: make(chan struct{}),
		errc: make(chan error, 1),
	}
}

// emit delivers one chunk to the consumer, returning false once the
// consumer has closed the stream.
func (s *chanStream) emit(c Chunk) bool {
	select {
	case s.ch <- c:
		return true
	case <-s.done:
		return false
	}
}

// finish signals end of stream, recording err if non-nil.
func (s *chanStream) finish(err error) {
	if err != nil {
		s.errc <- err
	}
	close(s.ch)
}

func (s *chanStream) Next() bool {
	c, ok := <-s.ch
	if !ok {
		select {
		case s.err = <-s.errc:
		default:
		}
		return false
	}
	s.current = c
	return true
}

func (s *chanStream) Current() Chunk { return s.current }

func (s *chanStream) Err() error { return s.err }

func (s *chanStream) Close() error {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
