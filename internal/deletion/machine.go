// Package deletion implements the admin flow removing stored reports:
// password gate, record selection and confirmation.
package deletion

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/types"
)

type Step int

const (
	StepPasswordGate Step = iota
	StepSelection
	StepConfirmDelete
)

func (s Step) String() string {
	switch s {
	case StepPasswordGate:
		return "password_gate"
	case StepSelection:
		return "selection"
	case StepConfirmDelete:
		return "confirm_delete"
	}
	return "unknown"
}

// Policy decides what the admin is told when the removal cannot be
// persisted. The in-memory removal is kept either way.
type Policy string

const (
	PolicyOptimistic Policy = "optimistic"
	PolicyFailClosed Policy = "fail_closed"
)

// Store is the part of the record store the flow needs.
type Store interface {
	All() []*types.Report
	Get(id types.ReportID) (*types.Report, bool)
	Remove(ctx context.Context, id types.ReportID) (bool, error)
}

// Flow is the state of one deletion attempt.
type Flow struct {
	Step   Step
	Target types.ReportID
}

type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeDeleted
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// Result is the effect of one event. Err is for logging only.
type Result struct {
	Replies []types.Reply
	Outcome Outcome
	Err     error
}

func (r Result) Done() bool { return r.Outcome != OutcomeContinue }

type Machine struct {
	store  Store
	secret []byte
	policy Policy
}

// New creates the machine. An empty secret rejects every password.
func New(store Store, secret string, policy Policy) *Machine {
	if policy == "" {
		policy = PolicyOptimistic
	}
	return &Machine{store: store, secret: []byte(secret), policy: policy}
}

// Start opens a flow at the password gate.
func (m *Machine) Start() (*Flow, []types.Reply) {
	return &Flow{Step: StepPasswordGate}, m.passwordPrompt()
}

func (m *Machine) passwordPrompt() []types.Reply {
	return []types.Reply{messages.Text(messages.AskPassword, messages.BackToMenuKeyboard())}
}

func (m *Machine) authorized(password string) bool {
	if len(m.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), m.secret) == 1
}

func terminal(outcome Outcome, notice string, err error) Result {
	return Result{Replies: []types.Reply{messages.Notice(notice)}, Outcome: outcome, Err: err}
}

// Handle advances f by one event.
func (m *Machine) Handle(ctx context.Context, f *Flow, ev *types.InboundEvent) Result {
	if f == nil {
		return terminal(OutcomeAborted, messages.InternalError, types.ErrInternalState)
	}
	var a types.Action
	if ev.Kind == types.EventControl {
		a = types.ParseAction(ev.Control)
	}

	switch f.Step {
	case StepPasswordGate:
		if ev.Kind != types.EventText {
			return m.unexpected(f, m.passwordPrompt())
		}
		return m.checkPassword(f, ev.Text)
	case StepSelection:
		switch a.Kind {
		case types.ActionSelect:
			return m.choose(f, a.Target)
		case types.ActionBack:
			f.Step = StepPasswordGate
			f.Target = ""
			return Result{Replies: m.passwordPrompt()}
		}
		res := m.selection(f)
		if res.Done() {
			return res
		}
		return m.unexpected(f, res.Replies)
	case StepConfirmDelete:
		switch a.Kind {
		case types.ActionYes:
			return m.confirm(ctx, f)
		case types.ActionNo, types.ActionBack:
			return m.selection(f)
		}
		return m.unexpected(f, confirmPrompt())
	}
	return terminal(OutcomeAborted, messages.InternalError,
		fmt.Errorf("%w: deletion at step %d", types.ErrInternalState, f.Step))
}

func (m *Machine) unexpected(f *Flow, replies []types.Reply) Result {
	return Result{
		Replies: replies,
		Err:     fmt.Errorf("%w at step %s", types.ErrUnexpectedInput, f.Step),
	}
}

func (m *Machine) checkPassword(f *Flow, password string) Result {
	if !m.authorized(password) {
		return terminal(OutcomeAborted, messages.WrongPassword, types.ErrUnauthorized)
	}
	return m.selection(f)
}

// selection moves f to record selection, rendering the current store.
func (m *Machine) selection(f *Flow) Result {
	reports := m.store.All()
	if len(reports) == 0 {
		return terminal(OutcomeAborted, messages.NothingToDelete, nil)
	}
	f.Step = StepSelection
	f.Target = ""
	return Result{Replies: []types.Reply{
		messages.Text(messages.ChooseRecord, messages.SelectionKeyboard(reports)),
	}}
}

func (m *Machine) choose(f *Flow, id types.ReportID) Result {
	if _, ok := m.store.Get(id); !ok {
		return m.selection(f)
	}
	f.Target = id
	f.Step = StepConfirmDelete
	return Result{Replies: confirmPrompt()}
}

func confirmPrompt() []types.Reply {
	return []types.Reply{messages.Text(messages.ConfirmDelete, messages.ConfirmDeleteKeyboard())}
}

func (m *Machine) confirm(ctx context.Context, f *Flow) Result {
	if f.Target == "" {
		return terminal(OutcomeAborted, messages.InternalError,
			fmt.Errorf("%w: no pending deletion target", types.ErrInternalState))
	}
	_, err := m.store.Remove(ctx, f.Target)
	if err != nil && m.policy == PolicyFailClosed {
		return terminal(OutcomeDeleted, messages.DeleteNotSynced, err)
	}
	return terminal(OutcomeDeleted, messages.Deleted, err)
}
