package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/kernel6/internal/types"
)

// legacyLayout is the timestamp format of documents written by the first
// generation of the bot, in UTC-3 without an offset.
const legacyLayout = "2006-01-02 15:04:05"

// legacyReport is a record as written by the first generation of the bot,
// with Portuguese keys and numeric Telegram ids.
type legacyReport struct {
	ID             string          `json:"id"`
	Categoria      string          `json:"categoria"`
	Titulo         string          `json:"titulo"`
	Descricao      string          `json:"descricao"`
	DescricaoLocal string          `json:"descricao_local"`
	PhotoFileID    *string         `json:"photo_file_id"`
	Status         string          `json:"status"`
	UserID         json.RawMessage `json:"user_id"`
	ChatID         json.RawMessage `json:"chat_id"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

var legacyStatuses = map[string]types.Status{
	"pendente": types.StatusPending,
}

// decodeReports parses the record document. Entries in the legacy shape are
// converted; the next write stores them in the current shape.
func decodeReports(data []byte) ([]*types.Report, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	reports := make([]*types.Report, 0, len(raws))
	for i, raw := range raws {
		if string(raw) == "null" {
			continue
		}
		r, err := decodeReport(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decodeReport(raw json.RawMessage) (*types.Report, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	_, hasTitulo := keys["titulo"]
	_, hasCategoria := keys["categoria"]
	if !hasTitulo && !hasCategoria {
		var r types.Report
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	var l legacyReport
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	created, err := parseLegacyTime(l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	updated, err := parseLegacyTime(l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if updated.IsZero() {
		updated = created
	}
	status, ok := legacyStatuses[l.Status]
	if !ok {
		status = types.Status(l.Status)
	}
	return &types.Report{
		ID:             types.ReportID(l.ID),
		Category:       types.Category(l.Categoria),
		Title:          l.Titulo,
		Description:    l.Descricao,
		PhotoRef:       l.PhotoFileID,
		LocationText:   l.DescricaoLocal,
		Status:         status,
		SubmitterID:    rawID(l.UserID),
		ConversationID: rawID(l.ChatID),
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}

func parseLegacyTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyLayout, s, types.Zone)
}

// rawID renders a JSON number or string id as text.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
