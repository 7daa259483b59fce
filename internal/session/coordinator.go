package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

var (
	ErrStopped = errors.New("coordinator stopped")
	ErrIdle    = errors.New("nothing submitted")
)

// Coordinator serializes every transition on a single loop goroutine so
// that HTTP completions, push frames and user actions never interleave.
// Run must be called before any other method.
type Coordinator struct {
	submitter transcriber.Submitter
	surface   Surface
	newID     func() string

	opCh   chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// owned by the loop goroutine
	state    Context
	pushLive bool

	mu      sync.Mutex
	snap    Snapshot
	changed chan struct{}
}

func New(submitter transcriber.Submitter, surface Surface) *Coordinator {
	if surface == nil {
		surface = NopSurface{}
	}
	return &Coordinator{
		submitter: submitter,
		surface:   surface,
		newID:     uuid.NewString,
		opCh:      make(chan func()),
		changed:   make(chan struct{}),
	}
}

func (c *Coordinator) Run(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.loop()
}

// Stop cancels in-flight requests and waits for all goroutines to exit
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	for {
		select {
		case op := <-c.opCh:
			op()
		case <-c.ctx.Done():
			return
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish
func (c *Coordinator) do(fn func()) error {
	done := make(chan struct{})
	select {
	case c.opCh <- func() { fn(); close(done) }:
	case <-c.ctx.Done():
		return ErrStopped
	}
	<-done
	return nil
}

// post queues fn without waiting for it
func (c *Coordinator) post(fn func()) {
	select {
	case c.opCh <- fn:
	case <-c.ctx.Done():
	}
}

func (c *Coordinator) apply(next Context, effects []Effect) {
	prev := c.state.State
	c.state = next
	for _, e := range effects {
		if req, ok := e.(SendRequest); ok {
			c.send(req)
			continue
		}
		e.Apply(c.surface)
	}
	if prev != next.State {
		log.Printf("coordinator: %s -> %s (id=%s)", prev, next.State, next.ID)
	}

	c.mu.Lock()
	c.snap = next.Snapshot()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

func (c *Coordinator) send(req SendRequest) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		log.Printf("coordinator: sending %s (id=%s)", req.Submission, req.ID)
		result, err := c.submitter.Send(c.ctx, req.Submission)
		c.post(func() {
			if err != nil {
				log.Printf("coordinator: request %s failed: %v", req.ID, err)
				c.apply(c.state.FailRequest(req.ID, err))
			} else {
				if result == nil {
					log.Printf("coordinator: request %s accepted, waiting for push", req.ID)
				}
				c.apply(c.state.CompleteRequest(req.ID, result))
			}
			if !c.pushLive && req.ID == c.state.ID {
				c.apply(c.state.PushLost())
			}
		})
	}()
}

// Submit opens a new request slot and starts the HTTP submission. It
// returns the id assigned to the submission.
func (c *Coordinator) Submit(sub subtitles.Submission) (string, error) {
	var id string
	var err error
	if stopErr := c.do(func() {
		candidate := c.newID()
		next, effects, serr := c.state.Submit(candidate, sub)
		c.apply(next, effects)
		if serr != nil {
			err = serr
			return
		}
		id = candidate
	}); stopErr != nil {
		return "", stopErr
	}
	return id, err
}

// OnPushMessage handles one raw push frame
func (c *Coordinator) OnPushMessage(raw []byte) error {
	return c.do(func() {
		switch msg := subtitles.ParseMessage(raw).(type) {
		case subtitles.Unrecognized:
			log.Printf("coordinator: ignoring push message: %s", msg.Reason)
		case subtitles.ValidResult:
			if c.state.State != Pending {
				log.Printf("coordinator: push result dropped, slot is %s", c.state.State)
				return
			}
			c.apply(c.state.Resolve(msg.Result, SourcePush))
		}
	})
}

// Subscribe feeds push channel events into the coordinator until events
// is closed or the coordinator stops. Without a live subscription, a
// request the service accepts without a result fails with ErrNoDelivery.
func (c *Coordinator) Subscribe(events <-chan transcriber.PushEvent) {
	if err := c.do(func() { c.pushLive = true }); err != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					c.onPushLost()
					return
				}
				switch ev.Kind {
				case transcriber.PushOpened:
					log.Printf("coordinator: push channel open")
				case transcriber.PushMessage:
					if err := c.OnPushMessage(ev.Data); err != nil {
						return
					}
				case transcriber.PushClosed:
					if ev.Err != nil {
						log.Printf("coordinator: push channel closed: %v", ev.Err)
					} else {
						log.Printf("coordinator: push channel closed")
					}
					c.onPushLost()
				}
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

func (c *Coordinator) onPushLost() {
	c.do(func() {
		if !c.pushLive {
			return
		}
		c.pushLive = false
		if c.state.State == Pending {
			log.Printf("coordinator: push channel lost while %s is pending", c.state.ID)
		}
		c.apply(c.state.PushLost())
	})
}

// ToggleTranscript flips transcript visibility and returns the new value
func (c *Coordinator) ToggleTranscript() (bool, error) {
	var visible bool
	var err error
	if stopErr := c.do(func() {
		next, effects, terr := c.state.ToggleTranscript()
		if terr != nil {
			err = terr
			return
		}
		c.apply(next, effects)
		visible = next.TranscriptVisible
	}); stopErr != nil {
		return false, stopErr
	}
	return visible, err
}

func (c *Coordinator) Export(f subtitles.Format) (subtitles.File, error) {
	var file subtitles.File
	var err error
	if stopErr := c.do(func() {
		file, err = c.state.Export(f)
	}); stopErr != nil {
		return subtitles.File{}, stopErr
	}
	return file, err
}

// Snapshot returns the state as of the last transition
func (c *Coordinator) Snapshot() Snapshot {
	snap, _ := c.observe()
	return snap
}

func (c *Coordinator) observe() (Snapshot, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, c.changed
}

// Wait blocks until the current submission resolves or its HTTP request
// fails. On failure the returned error is the transport error.
func (c *Coordinator) Wait(ctx context.Context) (Snapshot, error) {
	return c.wait(ctx, true)
}

// WaitResolved blocks until the current submission resolves, ignoring
// HTTP failures so that a late push can still complete it. It gives up
// once no channel is left to resolve the slot.
func (c *Coordinator) WaitResolved(ctx context.Context) (Snapshot, error) {
	return c.wait(ctx, false)
}

func (c *Coordinator) wait(ctx context.Context, stopOnFailure bool) (Snapshot, error) {
	for {
		snap, changed := c.observe()
		switch {
		case snap.State == Resolved:
			return snap, nil
		case snap.State == Idle:
			return snap, ErrIdle
		case snap.Err != nil && (stopOnFailure || !CanAwaitPush(snap.Err)):
			return snap, snap.Err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-c.ctx.Done():
			return snap, ErrStopped
		}
	}
}
