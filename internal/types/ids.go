// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// SessionKey identifies one conversation (transport, user and chat).
type SessionKey string

type ReportID string
type RunID string

func NewReportID() ReportID {
	return ReportID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewSessionKey(parts ...string) SessionKey {
	return SessionKey(strings.Join(parts, ":"))
}

// Prefix returns the transport segment of the key including the trailing
// separator, e.g. "telegram:".
func (k SessionKey) Prefix() string {
	s := string(k)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i+1]
	}
	return s
}
