package lead

import (
	"strconv"
	"time"

	"github.com/leadforge/leadforge/internal/domain"
)

// Hash field names for the lead row.
const (
	fieldID               = "id"
	fieldPublicIdentifier = "public_identifier"
	fieldCompany          = "company"
	fieldText             = "text"
	fieldVector           = "vector"
	fieldIsSeed           = "is_seed"
	fieldLabel            = "label"
	fieldLabelReason      = "label_reason"
	fieldStatus           = "status"
	fieldSeq              = "seq"
	fieldCreatedAt        = "created_at"
	fieldLabeledAt        = "labeled_at"
)

// baseHashFields converts the unconditionally-overwritten attributes of a Lead
// into a flat map[string]string for HSET. Label, status, seq and timestamps
// are appended by the caller according to the upsert rules.
func baseHashFields(l *domain.Lead) map[string]string {
	m := make(map[string]string, 12)
	m[fieldID] = l.ID
	m[fieldPublicIdentifier] = l.PublicIdentifier
	m[fieldCompany] = l.Company
	m[fieldText] = l.Text
	m[fieldVector] = string(domain.VectorToBytes(l.Embedding))
	m[fieldIsSeed] = boolField(l.IsSeed)
	return m
}

// parseHashFields converts a flat hash map back into a domain Lead.
func parseHashFields(m map[string]string) domain.Lead {
	l := domain.Lead{
		ID:               m[fieldID],
		PublicIdentifier: m[fieldPublicIdentifier],
		Company:          m[fieldCompany],
		Text:             m[fieldText],
		IsSeed:           m[fieldIsSeed] == "1",
		LabelReason:      m[fieldLabelReason],
		Status:           domain.LeadStatus(m[fieldStatus]),
	}

	if v, err := domain.BytesToVector([]byte(m[fieldVector])); err == nil {
		l.Embedding = v
	}
	if s, ok := m[fieldLabel]; ok && s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			lbl := domain.Label(n)
			l.Label = &lbl
		}
	}
	if s, ok := m[fieldSeq]; ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			l.Seq = n
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, m[fieldCreatedAt]); err == nil {
		l.CreatedAt = t
	}
	if s, ok := m[fieldLabeledAt]; ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			l.LabeledAt = &t
		}
	}
	return l
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
