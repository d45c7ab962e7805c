// Package orchestrator owns the client-side generation lifecycle and the
// history of results.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
)

const (
	MsgEnterPrompt = "Please enter a prompt"
	MsgGenerated   = "Image generated successfully!"
)

// State is an immutable snapshot handed to listeners.
type State struct {
	Generating bool
	Entries    []Entry
	Current    *Entry
}

type Options struct {
	Transport Transport
	Notifier  Notifier
	Logger    *infra.Logger
	Now       func() time.Time
}

// Orchestrator mediates between user intent and the history. At most one
// generation runs at a time; a second call while one is pending fails with
// a busy result instead of racing the first.
type Orchestrator struct {
	mu         sync.Mutex
	history    *History
	generating bool
	listeners  map[int]func(State)
	nextID     int

	transport Transport
	notifier  Notifier
	logger    *infra.Logger
	now       func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		history:   NewHistory(),
		listeners: make(map[int]func(State)),
		transport: opts.Transport,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if o.notifier == nil {
		o.notifier = discardNotifier{}
	}
	if o.logger == nil {
		o.logger = infra.DiscardLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Generate submits prompt and folds the outcome into the history.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) domain.GenerationResult {
	if strings.TrimSpace(prompt) == "" {
		o.notifier.Notify(NoticeError, MsgEnterPrompt)
		return domain.Failure(domain.KindValidation, MsgEnterPrompt)
	}

	o.mu.Lock()
	if o.generating {
		o.mu.Unlock()
		o.notifier.Notify(NoticeError, domain.MsgBusy)
		return domain.Failure(domain.KindBusy, domain.MsgBusy)
	}
	o.generating = true
	o.unlockAndPublish()

	res := o.call(ctx, prompt)
	if res.Succeeded() && len(res.Images) == 0 {
		res = domain.Failure(domain.KindUpstream, domain.MsgNoImages).WithRequestID(res.RequestID)
	}

	o.mu.Lock()
	o.generating = false
	if res.Succeeded() {
		entry := o.history.Insert(prompt, res.Images, o.now())
		o.logger.Info().Int64("entry", entry.ID).Int("images", len(entry.Images)).Msg("orchestrator: generation stored")
	} else {
		o.logger.Warn().Str("kind", string(res.Kind)).Str("error", res.Message).Msg("orchestrator: generation failed")
	}
	o.unlockAndPublish()

	if res.Succeeded() {
		o.notifier.Notify(NoticeSuccess, MsgGenerated)
	} else {
		msg := res.Message
		if msg == "" {
			msg = domain.MsgGenerationFailed
		}
		o.notifier.Notify(NoticeError, msg)
	}
	return res
}

// call runs the transport with the lock released. A panicking transport is
// reported like any other transport failure.
func (o *Orchestrator) call(ctx context.Context, prompt string) (res domain.GenerationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error().Interface("panic", rec).Msg("orchestrator: transport panicked")
			res = domain.Failure(domain.KindTransport, "")
		}
	}()
	if o.transport == nil {
		return domain.Failure(domain.KindConfiguration, "no generation transport configured")
	}
	return o.transport.Generate(ctx, prompt)
}

// Generating reports whether a generation is pending.
func (o *Orchestrator) Generating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generating
}

// SelectHistory makes id current. It reports false, and changes nothing,
// when id is unknown.
func (o *Orchestrator) SelectHistory(id int64) bool {
	o.mu.Lock()
	ok := o.history.Select(id)
	if ok {
		o.unlockAndPublish()
	} else {
		o.mu.Unlock()
	}
	return ok
}

// StartNewChat clears the selection.
func (o *Orchestrator) StartNewChat() {
	o.mu.Lock()
	o.history.ClearCurrent()
	o.unlockAndPublish()
}

// DeleteHistory removes id. Deleting an absent id is a no-op.
func (o *Orchestrator) DeleteHistory(id int64) bool {
	o.mu.Lock()
	ok := o.history.Delete(id)
	if ok {
		o.unlockAndPublish()
	} else {
		o.mu.Unlock()
	}
	return ok
}

// TogglePin flips the pin on id and returns the new pinned state.
func (o *Orchestrator) TogglePin(id int64) bool {
	o.mu.Lock()
	pinned := o.history.TogglePin(id)
	o.unlockAndPublish()
	return pinned
}

// Filter is a read-only view in display order.
func (o *Orchestrator) Filter(query string) []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history.Filter(query)
}

// Entries returns the whole history in display order.
func (o *Orchestrator) Entries() []Entry {
	return o.Filter("")
}

func (o *Orchestrator) Current() (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history.Current()
}

func (o *Orchestrator) Entry(id int64) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history.Get(id)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Subscribe registers fn for state changes. Changes made after unsubscribe
// returns are not delivered, including the end of a generation that was
// already in flight.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orchestrator) stateLocked() State {
	st := State{Generating: o.generating, Entries: o.history.Display()}
	if cur, ok := o.history.Current(); ok {
		st.Current = &cur
	}
	return st
}

// unlockAndPublish snapshots state and listeners, releases the lock and then
// calls the listeners so they may call back into the orchestrator.
func (o *Orchestrator) unlockAndPublish() {
	st := o.stateLocked()
	listeners := make([]func(State), 0, len(o.listeners))
	for _, fn := range o.listeners {
		listeners = append(listeners, fn)
	}
	o.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}
