// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Category is one of the fixed report categories offered by the wizard.
type Category string

const (
	CategoryStreetLighting Category = "Iluminação pública"
	CategoryCleaning       Category = "Limpeza urbana"
	CategoryPothole        Category = "Buraco na rua"
	CategoryGreenAreas     Category = "Áreas verdes / Praças"
	CategorySchool         Category = "Escola / Creche"
	CategorySecurity       Category = "Segurança"
	CategoryOther          Category = "Outro"
)

// Categories lists every category in display order. The last entry is the
// catch-all.
var Categories = []Category{
	CategoryStreetLighting,
	CategoryCleaning,
	CategoryPothole,
	CategoryGreenAreas,
	CategorySchool,
	CategorySecurity,
	CategoryOther,
}

// CategoryAt returns the category at index i of Categories.
func CategoryAt(i int) (Category, bool) {
	if i < 0 || i >= len(Categories) {
		return "", false
	}
	return Categories[i], true
}

type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusUnderReview Status = "under_review"
	StatusRejected    Status = "rejected"
)

// Zone is the civil time zone (UTC-3) used for report timestamps.
var Zone = time.FixedZone("BRT", -3*60*60)

// Now returns the current time in Zone truncated to whole seconds.
func Now() time.Time {
	return time.Now().In(Zone).Truncate(time.Second)
}

// Report is a finalized civic-issue record. It is never edited after being
// stored; deletion removes it wholesale.
type Report struct {
	ID             ReportID  `json:"id"`
	Category       Category  `json:"category"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	PhotoRef       *string   `json:"photo_ref"`
	LocationText   string    `json:"location_text"`
	Status         Status    `json:"status"`
	SubmitterID    string    `json:"submitter_id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPhoto reports whether an image is attached.
func (r *Report) HasPhoto() bool {
	return r.PhotoRef != nil && *r.PhotoRef != ""
}

// EventKind classifies inbound conversation events.
type EventKind string

const (
	EventText    EventKind = "text"
	EventImage   EventKind = "image"
	EventControl EventKind = "control"
	EventCommand EventKind = "command"
)

// InboundEvent is one user input delivered by a transport.
type InboundEvent struct {
	Source     string          `json:"source"`
	SessionKey SessionKey      `json:"session_key"`
	UserID     string          `json:"user_id"`
	ChatID     string          `json:"chat_id"`
	Kind       EventKind       `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ImageRef   string          `json:"image_ref,omitempty"`
	Control    string          `json:"control,omitempty"`
	Command    string          `json:"command,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Control is a labelled choice. Value is the opaque string sent back by the
// transport when the control is selected.
type Control struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Keyboard holds controls laid out in rows.
type Keyboard [][]Control

// Reply is one outbound message. When ImageRef is set the message is an
// image and Text is its caption.
type Reply struct {
	Text     string   `json:"text"`
	ImageRef string   `json:"image_ref,omitempty"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}
