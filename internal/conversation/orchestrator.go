// Package conversation routes inbound events to the flow active in each
// conversation and delivers the replies.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/kernel6/internal/deletion"
	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/types"
	"github.com/user/kernel6/internal/validation"
	"github.com/user/kernel6/internal/wizard"
)

// Reports is the record store as seen by the conversation layer.
type Reports interface {
	wizard.Appender
	deletion.Store
	List() []*types.Report
}

type Options struct {
	AdminPassword string
	DeletePolicy  deletion.Policy
	Clock         func() time.Time
	WizardOptions []wizard.Option
}

// Orchestrator owns the session table. Events of one conversation are
// handled one at a time; different conversations proceed independently.
type Orchestrator struct {
	channel types.Channel
	store   Reports
	creator *wizard.Machine
	deleter *deletion.Machine
	now     func() time.Time

	mu       sync.Mutex
	sessions map[types.SessionKey]*Session
}

func New(channel types.Channel, store Reports, opts Options) *Orchestrator {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		channel:  channel,
		store:    store,
		creator:  wizard.New(store, opts.WizardOptions...),
		deleter:  deletion.New(store, opts.AdminPassword, opts.DeletePolicy),
		now:      now,
		sessions: make(map[types.SessionKey]*Session),
	}
}

type handler func(o *Orchestrator, ctx context.Context, s *Session, ev *types.InboundEvent) []types.Reply

// commands maps slash commands (without the slash) to their handlers.
var commands = map[string]handler{
	"start":     (*Orchestrator).menu,
	"ajuda":     (*Orchestrator).help,
	"help":      (*Orchestrator).help,
	"registrar": (*Orchestrator).startCreation,
	"deletar":   (*Orchestrator).startDeletion,
	"listar":    (*Orchestrator).list,
}

// menuActions are the controls honoured in every mode.
var menuActions = map[types.ActionKind]handler{
	types.ActionMenu:     (*Orchestrator).menu,
	types.ActionRegister: (*Orchestrator).startCreation,
	types.ActionDelete:   (*Orchestrator).startDeletion,
	types.ActionList:     (*Orchestrator).list,
	types.ActionHelp:     (*Orchestrator).help,
}

// modes routes everything else to the flow the session is running.
var modes = map[Mode]handler{
	ModeNone:     (*Orchestrator).idle,
	ModeCreating: (*Orchestrator).creating,
	ModeDeleting: (*Orchestrator).deleting,
}

// Process handles one event to completion, including delivery of the
// replies. The returned error reports delivery failures only.
func (o *Orchestrator) Process(ctx context.Context, ev *types.InboundEvent) error {
	if ev == nil || ev.SessionKey == "" {
		return fmt.Errorf("%w: event without session key", types.ErrInternalState)
	}

	s := o.acquire(ev.SessionKey)
	s.UpdatedAt = o.now()
	replies := o.dispatch(ctx, s, ev)
	if s.Mode == ModeNone {
		o.release(s)
	}
	s.mu.Unlock()

	return o.send(ctx, ev.SessionKey, replies)
}

func (o *Orchestrator) dispatch(ctx context.Context, s *Session, ev *types.InboundEvent) []types.Reply {
	switch ev.Kind {
	case types.EventCommand:
		if h, ok := commands[ev.Command]; ok {
			return h(o, ctx, s, ev)
		}
		return []types.Reply{messages.Menu()}
	case types.EventControl:
		if h, ok := menuActions[types.ParseAction(ev.Control).Kind]; ok {
			return h(o, ctx, s, ev)
		}
	}

	h, ok := modes[s.Mode]
	if !ok {
		slog.Error("session in unknown mode", "session_key", string(s.Key), "mode", int(s.Mode))
		s.reset()
		return []types.Reply{messages.Notice(messages.InternalError)}
	}
	return h(o, ctx, s, ev)
}

// acquire returns the locked session for key, creating it when absent.
func (o *Orchestrator) acquire(key types.SessionKey) *Session {
	for {
		o.mu.Lock()
		s, ok := o.sessions[key]
		if !ok {
			s = &Session{Key: key}
			o.sessions[key] = s
		}
		o.mu.Unlock()

		s.mu.Lock()
		o.mu.Lock()
		current := o.sessions[key] == s
		o.mu.Unlock()
		if current {
			return s
		}
		// Swept while we waited.
		s.mu.Unlock()
	}
}

func (o *Orchestrator) release(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sessions[s.Key] == s {
		delete(o.sessions, s.Key)
	}
}

func (o *Orchestrator) menu(_ context.Context, s *Session, _ *types.InboundEvent) []types.Reply {
	s.reset()
	return []types.Reply{messages.Menu()}
}

func (o *Orchestrator) help(context.Context, *Session, *types.InboundEvent) []types.Reply {
	return []types.Reply{messages.Text(messages.Help, messages.MenuKeyboard())}
}

func (o *Orchestrator) startCreation(_ context.Context, s *Session, ev *types.InboundEvent) []types.Reply {
	d, replies := o.creator.Start(ev.UserID, ev.ChatID)
	s.startCreating(d)
	return replies
}

func (o *Orchestrator) startDeletion(_ context.Context, s *Session, _ *types.InboundEvent) []types.Reply {
	f, replies := o.deleter.Start()
	s.startDeleting(f)
	return replies
}

func (o *Orchestrator) list(context.Context, *Session, *types.InboundEvent) []types.Reply {
	return Listing(o.store.List())
}

func (o *Orchestrator) idle(_ context.Context, s *Session, _ *types.InboundEvent) []types.Reply {
	return []types.Reply{messages.Menu()}
}

func (o *Orchestrator) creating(ctx context.Context, s *Session, ev *types.InboundEvent) []types.Reply {
	res := o.creator.Handle(ctx, s.Draft, ev)
	logResult(s, "creation", res.Outcome.String(), res.Err)
	if res.Done() {
		s.reset()
	}
	return res.Replies
}

func (o *Orchestrator) deleting(ctx context.Context, s *Session, ev *types.InboundEvent) []types.Reply {
	var target types.ReportID
	if s.Deletion != nil {
		target = s.Deletion.Target
	}
	res := o.deleter.Handle(ctx, s.Deletion, ev)
	logResult(s, "deletion", res.Outcome.String(), res.Err)
	if res.Outcome == deletion.OutcomeDeleted {
		slog.Info("report deleted", "session_key", string(s.Key), "report_id", string(target))
	}
	if res.Done() {
		s.reset()
	}
	return res.Replies
}

func logResult(s *Session, flow, outcome string, err error) {
	if err == nil {
		return
	}
	attrs := []any{"session_key", string(s.Key), "flow", flow, "outcome", outcome, "error", err}
	var verr *validation.Error
	switch {
	case errors.As(err, &verr), errors.Is(err, types.ErrUnexpectedInput):
		slog.Debug("input rejected", attrs...)
	case errors.Is(err, types.ErrUnauthorized):
		slog.Warn("deletion denied", attrs...)
	default:
		slog.Error("flow failed", attrs...)
	}
}

// send delivers replies in order. An image that cannot be delivered is
// replaced by its caption as text.
func (o *Orchestrator) send(ctx context.Context, key types.SessionKey, replies []types.Reply) error {
	var errs []error
	for _, r := range replies {
		if r.ImageRef != "" {
			err := o.channel.SendImage(ctx, key, r.ImageRef, r.Text, r.Keyboard)
			if err == nil {
				continue
			}
			slog.Warn("image delivery failed, falling back to text", "session_key", string(key), "error", err)
		}
		if err := o.channel.SendText(ctx, key, r.Text, r.Keyboard); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrTransport, errors.Join(errs...))
	}
	return nil
}

// SweepIdle abandons sessions untouched for longer than timeout, discarding
// their drafts. Sessions busy with an event are skipped.
func (o *Orchestrator) SweepIdle(now time.Time, timeout time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	swept := 0
	for key, s := range o.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if now.Sub(s.UpdatedAt) > timeout {
			delete(o.sessions, key)
			swept++
			slog.Info("session abandoned", "session_key", string(key), "mode", s.Mode.String())
		}
		s.mu.Unlock()
	}
	return swept
}

// Mode returns the flow running in the conversation identified by key.
func (o *Orchestrator) Mode(key types.SessionKey) Mode {
	o.mu.Lock()
	s, ok := o.sessions[key]
	o.mu.Unlock()
	if !ok {
		return ModeNone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Mode
}

// Len returns the number of live sessions.
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}
