// Package wizard implements the report creation flow: a Draft accumulating
// the report fields and the step machine that fills it.
package wizard

import (
	"time"

	"github.com/user/kernel6/internal/types"
)

// Step is the wizard cursor.
type Step int

const (
	StepCategory Step = iota
	StepTitle
	StepDescription
	StepPhotoChoice
	StepPhotoCapture
	StepLocation
	StepConfirmation

	stepCount
)

var stepNames = [...]string{
	StepCategory:     "category",
	StepTitle:        "title",
	StepDescription:  "description",
	StepPhotoChoice:  "photo_choice",
	StepPhotoCapture: "photo_capture",
	StepLocation:     "location",
	StepConfirmation: "confirmation",
}

func (s Step) String() string {
	if s < 0 || s >= stepCount {
		return "unknown"
	}
	return stepNames[s]
}

// Draft is the in-progress report of one session. It is never persisted.
type Draft struct {
	Step Step

	Category     types.Category
	Status       types.Status
	Title        string
	Description  string
	PhotoRef     *string
	LocationText string

	ID             types.ReportID
	SubmitterID    string
	ConversationID string
	CreatedAt      time.Time
}

// NewDraft returns an empty draft positioned at the category step.
func NewDraft(submitterID, conversationID string) *Draft {
	return &Draft{
		Step:           StepCategory,
		SubmitterID:    submitterID,
		ConversationID: conversationID,
	}
}

// truncate clears every field collected at step to or later, leaving only
// the prefix gathered before it.
func (d *Draft) truncate(to Step) {
	if to <= StepConfirmation {
		d.ID = ""
		d.CreatedAt = time.Time{}
	}
	if to <= StepLocation {
		d.LocationText = ""
	}
	if to <= StepPhotoChoice {
		d.PhotoRef = nil
	}
	if to <= StepDescription {
		d.Description = ""
	}
	if to <= StepTitle {
		d.Title = ""
	}
	if to <= StepCategory {
		d.Category = ""
		d.Status = ""
	}
}

// Report converts the draft into a finalized report.
func (d *Draft) Report() *types.Report {
	r := &types.Report{
		ID:             d.ID,
		Category:       d.Category,
		Title:          d.Title,
		Description:    d.Description,
		LocationText:   d.LocationText,
		Status:         d.Status,
		SubmitterID:    d.SubmitterID,
		ConversationID: d.ConversationID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.CreatedAt,
	}
	if d.PhotoRef != nil {
		ref := *d.PhotoRef
		r.PhotoRef = &ref
	}
	return r
}
