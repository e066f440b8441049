// Package agenttest provides canned event sources for tests of packages that
// consume an agent stream.
package agenttest

import (
	"context"
	"io"
	"sync"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
)

// Source replays fixed events, then ends with Err or io.EOF.
type Source struct {
	Events []protocol.Event
	Err    error

	mu     sync.Mutex
	next   int
	closed bool
}

var _ agent.Source = (*Source)(nil)

// Events returns a source that yields events and then io.EOF.
func Events(events ...protocol.Event) *Source {
	return &Source{Events: events}
}

// Failing returns a source that yields events and then fails with err.
func Failing(err error, events ...protocol.Event) *Source {
	return &Source{Events: events, Err: err}
}

// Next implements agent.Source.
func (s *Source) Next(ctx context.Context) (protocol.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, io.EOF
	}
	if s.next < len(s.Events) {
		e := s.Events[s.next]
		s.next++
		return e, nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}

// Close implements agent.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
