package engine

import (
	"fmt"
	"sync"
)

// executor runs one command to completion; the shard supplies the
// serialization, the engine supplies the semantics.
type executor func(env *envelope) *execResult

// shard processes commands for a subset of orders. One event loop
// goroutine per shard makes "read order, validate, write order" a
// single atomic unit for every order routed here.
type shard struct {
	id       int
	cmdQueue chan *commandRequest
	exec     executor

	submitMu sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
}

// commandRequest wraps a command with a response channel
type commandRequest struct {
	envelope *envelope
	respChan chan *execResult
}

func newShard(id int, queueSize int, exec executor) *shard {
	return &shard{
		id:       id,
		cmdQueue: make(chan *commandRequest, queueSize),
		exec:     exec,
	}
}

// start starts the shard's event loop in a goroutine
func (s *shard) start() {
	s.wg.Add(1)
	go s.eventLoop()
}

// stop gracefully stops the shard event loop
func (s *shard) stop() {
	s.submitMu.Lock()
	if s.stopped {
		s.submitMu.Unlock()
		return
	}
	s.stopped = true
	close(s.cmdQueue)
	s.submitMu.Unlock()

	s.wg.Wait()
}

// submit submits a command to the shard and waits for the result
func (s *shard) submit(env *envelope) *execResult {
	respChan := make(chan *execResult, 1)
	req := &commandRequest{
		envelope: env,
		respChan: respChan,
	}

	s.submitMu.RLock()
	if s.stopped {
		s.submitMu.RUnlock()
		return &execResult{Err: fmt.Errorf("%w: shard %d is stopped", ErrStoreUnavailable, s.id)}
	}
	s.cmdQueue <- req
	s.submitMu.RUnlock()
	return <-respChan
}

// eventLoop processes commands serially
func (s *shard) eventLoop() {
	defer s.wg.Done()

	for req := range s.cmdQueue {
		if req == nil {
			continue
		}
		req.respChan <- s.exec(req.envelope)
	}
}
