package llm

import (
	"context"
	"io"
	"sync"
)

// Script is a deterministic Streamer that replays canned fragments. Each
// call to Stream consumes the next entry of Turns; once Turns is exhausted
// the last entry repeats. Err, when set, terminates every stream after its
// fragments have been delivered.
type Script struct {
	Turns [][]Fragment
	Err   error

	mu       sync.Mutex
	calls    int
	requests []Request
}

// NewScript returns a Script replaying turns in order.
func NewScript(turns ...[]Fragment) *Script {
	return &Script{Turns: turns}
}

// Stream implements Streamer.
func (s *Script) Stream(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	var frags []Fragment
	if n := len(s.Turns); n > 0 {
		i := min(s.calls, n-1)
		frags = append(frags, s.Turns[i]...)
	}
	s.calls++
	return &scriptStream{ctx: ctx, frags: frags, err: s.Err}, nil
}

// Requests returns the requests received so far.
func (s *Script) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

type scriptStream struct {
	ctx   context.Context
	frags []Fragment
	err   error
}

func (s *scriptStream) Recv() (Fragment, error) {
	if err := s.ctx.Err(); err != nil {
		return Fragment{}, err
	}
	if len(s.frags) == 0 {
		if s.err != nil {
			return Fragment{}, s.err
		}
		return Fragment{}, io.EOF
	}
	f := s.frags[0]
	s.frags = s.frags[1:]
	return f, nil
}

func (s *scriptStream) Close() error { return nil }
