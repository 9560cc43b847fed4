package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/kernel6/internal/types"
	"github.com/user/kernel6/internal/validation"
)

const (
	dateLayout        = "02/01/2006 15:04"
	maxPreviewDetails = 100
)

var statusLabels = map[types.Status]string{
	types.StatusPending:     "⏳ Pendente",
	types.StatusApproved:    "✅ Aprovado",
	types.StatusUnderReview: "🔍 Em análise",
	types.StatusRejected:    "❌ Rejeitado",
}

// FormatStatus returns the display label of a status, or the raw value for
// unknown statuses.
func FormatStatus(s types.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// FormatDate renders t in the report zone, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(types.Zone).Format(dateLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// FormatListEntry renders the n-th (1-based) report of a listing.
func FormatListEntry(n int, r *types.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d. %s*\n", n, orDash(string(r.Category)))
	fmt.Fprintf(&b, "📝 *Título:* %s\n", orDash(r.Title))
	fmt.Fprintf(&b, "📄 *Descrição:* %s\n", orDash(r.Description))
	fmt.Fprintf(&b, "📍 *Local:* %s\n", orDash(r.LocationText))
	fmt.Fprintf(&b, "📅 *Criado:* %s\n", FormatDate(r.CreatedAt))
	fmt.Fprintf(&b, "📊 *Status:* %s\n", FormatStatus(r.Status))
	return b.String()
}

// FormatPreview renders the confirmation summary of a report about to be
// saved.
func FormatPreview(r *types.Report) string {
	photo := "❌ Não"
	if r.HasPhoto() {
		photo = "✅ Sim"
	}

	var b strings.Builder
	b.WriteString("📋 *CONFIRME OS DADOS DO PROBLEMA*\n\n")
	fmt.Fprintf(&b, "📁 *Categoria:* %s\n", orDash(string(r.Category)))
	fmt.Fprintf(&b, "📝 *Título:* %s\n", orDash(r.Title))
	fmt.Fprintf(&b, "📄 *Descrição:* %s\n", orDash(validation.Truncate(r.Description, maxPreviewDetails)))
	fmt.Fprintf(&b, "📍 *Local:* %s\n", orDash(r.LocationText))
	fmt.Fprintf(&b, "📅 *Data:* %s\n", FormatDate(r.CreatedAt))
	fmt.Fprintf(&b, "📊 *Status:* %s\n", FormatStatus(r.Status))
	fmt.Fprintf(&b, "📷 *Foto anexada:* %s\n\n", photo)
	b.WriteString("*Tudo correto?*")
	return b.String()
}
