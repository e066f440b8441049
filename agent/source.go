package agent

import (
	"context"
	"io"
	"sync"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
)

// Source is a pull-based event sequence. Next returns io.EOF after the last
// event, or the error that stopped production.
type Source interface {
	Next(ctx context.Context) (protocol.Event, error)
	Close() error
}

type emitFunc func(protocol.Event) error

type produceFunc func(ctx context.Context, emit emitFunc) error

// chanSource runs the producer in one goroutine. The channel is unbuffered
// so the producer is never more than one event ahead of the consumer.
type chanSource struct {
	ctx     context.Context
	cancel  context.CancelFunc
	produce produceFunc

	startOnce sync.Once
	closeOnce sync.Once
	events    chan protocol.Event
	done      chan struct{}
	err       error
}

func newSource(ctx context.Context, produce produceFunc) *chanSource {
	ctx, cancel := context.WithCancel(ctx)
	return &chanSource{
		ctx:     ctx,
		cancel:  cancel,
		produce: produce,
		events:  make(chan protocol.Event),
		done:    make(chan struct{}),
	}
}

func (s *chanSource) start() {
	s.startOnce.Do(func() {
		go func() {
			defer close(s.done)
			s.err = s.produce(s.ctx, s.emit)
		}()
	})
}

func (s *chanSource) emit(e protocol.Event) error {
	select {
	case s.events <- e:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Next 拉取下一个事件
func (s *chanSource) Next(ctx context.Context) (protocol.Event, error) {
	s.start()

	select {
	case e := <-s.events:
		return e, nil
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops production and waits for the producer to return.
func (s *chanSource) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.startOnce.Do(func() { close(s.done) })
		<-s.done
	})
	return nil
}
