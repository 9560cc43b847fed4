package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/types"
	"github.com/user/kernel6/internal/validation"
)

// Appender persists finalized reports.
type Appender interface {
	Append(ctx context.Context, r *types.Report) error
}

// Outcome tells the caller whether the flow is still running.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeSaved
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeSaved:
		return "saved"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the effect of one event. Err is set for rejected input and
// failures; it is meant for logging, the user-facing notice is already in
// Replies.
type Result struct {
	Replies []types.Reply
	Outcome Outcome
	Err     error
}

// Done reports whether the flow reached a terminal state.
func (r Result) Done() bool { return r.Outcome != OutcomeContinue }

// Machine drives drafts through the creation steps.
type Machine struct {
	store Appender
	now   func() time.Time
	newID func() types.ReportID
}

type Option func(*Machine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides report id assignment.
func WithIDGenerator(gen func() types.ReportID) Option {
	return func(m *Machine) { m.newID = gen }
}

func New(store Appender, opts ...Option) *Machine {
	m := &Machine{
		store: store,
		now:   types.Now,
		newID: types.NewReportID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// input is an event reduced to what the steps care about.
type input struct {
	kind   types.EventKind
	text   string
	image  string
	action types.Action
}

func decode(ev *types.InboundEvent) input {
	in := input{kind: ev.Kind, text: ev.Text, image: ev.ImageRef}
	if ev.Kind == types.EventControl {
		in.action = types.ParseAction(ev.Control)
	}
	return in
}

// step describes one wizard state. A nil handler means the input kind is
// not accepted there and the prompt is rendered again.
type step struct {
	back    Step
	hasBack bool
	prompt  func(d *Draft) []types.Reply
	text    func(m *Machine, d *Draft, text string) Result
	image   func(m *Machine, d *Draft, ref string) Result
	action  func(m *Machine, ctx context.Context, d *Draft, a types.Action) Result
}

var steps map[Step]step

func init() {
	steps = map[Step]step{
		StepCategory: {
			prompt: buttonPrompt(messages.AskCategory, messages.CategoryKeyboard),
			action: (*Machine).onCategory,
		},
		StepTitle: {
			back:    StepCategory,
			hasBack: true,
			prompt:  textPrompt(messages.AskTitle),
			text:    (*Machine).onTitle,
		},
		StepDescription: {
			back:    StepTitle,
			hasBack: true,
			prompt:  textPrompt(messages.AskDescription),
			text:    (*Machine).onDescription,
		},
		StepPhotoChoice: {
			back:    StepDescription,
			hasBack: true,
			prompt:  buttonPrompt(messages.AskPhoto, messages.PhotoChoiceKeyboard),
			action:  (*Machine).onPhotoChoice,
		},
		StepPhotoCapture: {
			back:    StepPhotoChoice,
			hasBack: true,
			prompt:  buttonPrompt(messages.PhotoExpected, messages.PhotoChoiceKeyboard),
			image:   (*Machine).onPhoto,
			action:  (*Machine).onPhotoChoice,
		},
		StepLocation: {
			back:    StepPhotoChoice,
			hasBack: true,
			prompt:  textPrompt(messages.AskLocation),
			text:    (*Machine).onLocation,
		},
		StepConfirmation: {
			back:    StepLocation,
			hasBack: true,
			prompt:  preview,
			action:  (*Machine).onConfirmation,
		},
	}
}

func textPrompt(text string) func(*Draft) []types.Reply {
	return buttonPrompt(text, messages.BackKeyboard)
}

func buttonPrompt(text string, kb func() types.Keyboard) func(*Draft) []types.Reply {
	return func(*Draft) []types.Reply {
		return []types.Reply{messages.Text(text, kb())}
	}
}

func preview(d *Draft) []types.Reply {
	var out []types.Reply
	if d.PhotoRef != nil && *d.PhotoRef != "" {
		out = append(out, types.Reply{Text: messages.PhotoCaption, ImageRef: *d.PhotoRef})
	}
	return append(out, messages.Text(messages.FormatPreview(d.Report()), messages.ConfirmationKeyboard()))
}

// Start creates a draft and returns it with the first prompt.
func (m *Machine) Start(submitterID, conversationID string) (*Draft, []types.Reply) {
	d := NewDraft(submitterID, conversationID)
	return d, steps[StepCategory].prompt(d)
}

// Prompt renders the current step of d again.
func (m *Machine) Prompt(d *Draft) []types.Reply {
	return steps[d.Step].prompt(d)
}

// Handle advances d by one event.
func (m *Machine) Handle(ctx context.Context, d *Draft, ev *types.InboundEvent) Result {
	if d == nil {
		return terminal(OutcomeFailed, messages.NoDraft, types.ErrInternalState)
	}
	st, ok := steps[d.Step]
	if !ok {
		return terminal(OutcomeFailed, messages.InternalError,
			fmt.Errorf("%w: wizard at step %d", types.ErrInternalState, d.Step))
	}

	in := decode(ev)
	switch {
	case in.kind == types.EventControl && in.action.Kind == types.ActionBack && st.hasBack:
		d.truncate(st.back)
		d.Step = st.back
		return m.proceed(d)
	case in.kind == types.EventControl && st.action != nil && in.action.Kind != types.ActionUnknown:
		return st.action(m, ctx, d, in.action)
	case in.kind == types.EventText && st.text != nil:
		return st.text(m, d, in.text)
	case in.kind == types.EventImage && st.image != nil && in.image != "":
		return st.image(m, d, in.image)
	}
	return m.unexpected(d, st)
}

func (m *Machine) proceed(d *Draft) Result {
	return Result{Replies: steps[d.Step].prompt(d)}
}

func (m *Machine) unexpected(d *Draft, st step) Result {
	var replies []types.Reply
	if st.text == nil && st.image == nil {
		replies = append(replies, messages.Text(messages.UseButtons, nil))
	}
	replies = append(replies, st.prompt(d)...)
	return Result{
		Replies: replies,
		Err:     fmt.Errorf("%w at step %s", types.ErrUnexpectedInput, d.Step),
	}
}

func (m *Machine) reject(d *Draft, text string, err error) Result {
	return Result{
		Replies: []types.Reply{messages.Text(text, messages.BackKeyboard())},
		Err:     err,
	}
}

func terminal(outcome Outcome, notice string, err error) Result {
	return Result{
		Replies: []types.Reply{messages.Text(notice, nil), messages.Menu()},
		Outcome: outcome,
		Err:     err,
	}
}

func (m *Machine) onCategory(_ context.Context, d *Draft, a types.Action) Result {
	if a.Kind != types.ActionCategory {
		return m.unexpected(d, steps[d.Step])
	}
	c, ok := types.CategoryAt(a.Index)
	if !ok {
		return m.unexpected(d, steps[d.Step])
	}
	d.Category = c
	d.Status = types.StatusPending
	d.Step = StepTitle
	return m.proceed(d)
}

func (m *Machine) onTitle(d *Draft, text string) Result {
	v, err := validation.Title.Check(text)
	if err != nil {
		if errors.Is(err, validation.ErrTooLong) {
			return m.reject(d, messages.TitleTooLong, err)
		}
		return m.reject(d, messages.TitleTooShort, err)
	}
	d.Title = v
	d.Step = StepDescription
	return m.proceed(d)
}

func (m *Machine) onDescription(d *Draft, text string) Result {
	v, err := validation.Description.Check(text)
	if err != nil {
		if errors.Is(err, validation.ErrTooLong) {
			return m.reject(d, messages.DescriptionTooLong, err)
		}
		return m.reject(d, messages.DescriptionTooShort, err)
	}
	d.Description = v
	d.Step = StepPhotoChoice
	return m.proceed(d)
}

func (m *Machine) onPhotoChoice(_ context.Context, d *Draft, a types.Action) Result {
	switch a.Kind {
	case types.ActionAddPhoto:
		d.Step = StepPhotoCapture
		return Result{Replies: []types.Reply{messages.Text(messages.AskPhotoUpload, messages.BackKeyboard())}}
	case types.ActionSkipPhoto:
		d.PhotoRef = nil
		d.Step = StepLocation
		return m.proceed(d)
	}
	return m.unexpected(d, steps[d.Step])
}

func (m *Machine) onPhoto(d *Draft, ref string) Result {
	d.PhotoRef = &ref
	d.Step = StepLocation
	return Result{Replies: []types.Reply{
		messages.Text(messages.PhotoReceived, nil),
		messages.Text(messages.AskLocation, messages.BackKeyboard()),
	}}
}

func (m *Machine) onLocation(d *Draft, text string) Result {
	v, err := validation.LocationText.Check(text)
	if err != nil {
		return m.reject(d, messages.LocationTooShort, err)
	}
	d.LocationText = v
	d.ID = m.newID()
	d.CreatedAt = m.now()
	d.Step = StepConfirmation
	return m.proceed(d)
}

func (m *Machine) onConfirmation(ctx context.Context, d *Draft, a types.Action) Result {
	switch a.Kind {
	case types.ActionConfirm:
		if d.ID == "" {
			return terminal(OutcomeFailed, messages.NoDraft,
				fmt.Errorf("%w: confirming draft without id", types.ErrInternalState))
		}
		if err := m.store.Append(ctx, d.Report()); err != nil {
			return terminal(OutcomeFailed, messages.SaveFailed, err)
		}
		return terminal(OutcomeSaved, messages.Saved, nil)
	case types.ActionCancel:
		return terminal(OutcomeCancelled, messages.Cancelled, nil)
	}
	return m.unexpected(d, steps[d.Step])
}
