package domain

import "time"

// KeyPrefix namespaces all store keys.
const KeyPrefix = "leadforge:"

// Label is a binary qualification label.
type Label int

const (
	// LabelNegative marks a lead not worth pursuing.
	LabelNegative Label = 0
	// LabelPositive marks a qualified lead.
	LabelPositive Label = 1
)

// LabelFor returns the label matching a qualification verdict.
func LabelFor(qualified bool) Label {
	if qualified {
		return LabelPositive
	}
	return LabelNegative
}

// LeadStatus tracks a lead through the outreach pipeline.
type LeadStatus string

const (
	// StatusImported is a discovered lead without profile data.
	StatusImported LeadStatus = "imported"
	// StatusEnriched has profile data but no qualification decision.
	StatusEnriched LeadStatus = "enriched"
	// StatusQualifying is in the active-learning loop.
	StatusQualifying LeadStatus = "qualifying"
	// StatusQualified passed qualification and awaits a connection request.
	StatusQualified LeadStatus = "qualified"
	// StatusDisqualified is terminal: not worth pursuing.
	StatusDisqualified LeadStatus = "disqualified"
	// StatusPending has an outstanding connection request.
	StatusPending LeadStatus = "pending"
	// StatusConnected accepted the connection request.
	StatusConnected LeadStatus = "connected"
	// StatusCompleted is terminal: follow-up sent.
	StatusCompleted LeadStatus = "completed"
	// StatusFailed is terminal: the outreach action failed.
	StatusFailed LeadStatus = "failed"
)

// ValidStatus reports whether s is a known pipeline status.
func ValidStatus(s LeadStatus) bool {
	switch s {
	case StatusImported, StatusEnriched, StatusQualifying, StatusQualified,
		StatusDisqualified, StatusPending, StatusConnected, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Lead is one candidate profile tracked through qualification and outreach.
// Embedding is nil until the profile text has been embedded. Label is nil
// until exactly one labeling event occurs; LabeledAt is set at that event
// and never moved by upserts.
type Lead struct {
	ID               string
	PublicIdentifier string
	Company          string
	Text             string
	Embedding        []float32
	IsSeed           bool
	Label            *Label
	LabelReason      string
	Status           LeadStatus
	Seq              int64
	CreatedAt        time.Time
	LabeledAt        *time.Time
}

// Labeled reports whether the lead carries a label.
func (l *Lead) Labeled() bool { return l.Label != nil }

// Embedded reports whether the lead carries an embedding.
func (l *Lead) Embedded() bool { return len(l.Embedding) > 0 }

// Decision is a qualification verdict with its audit reason.
type Decision struct {
	Qualified bool
	Reason    string
}

// LabelCounts summarizes the labeled portion of the store.
type LabelCounts struct {
	Positive int
	Negative int
	Total    int
}

// Dataset holds labeled training data as parallel slices. Both slices are
// empty, never nil, when no labeled rows exist.
type Dataset struct {
	Vectors [][]float32
	Labels  []Label
}

// Len returns the number of labeled examples.
func (d Dataset) Len() int { return len(d.Vectors) }

// Counts tallies the dataset by class.
func (d Dataset) Counts() LabelCounts {
	c := LabelCounts{Total: len(d.Labels)}
	for _, y := range d.Labels {
		if y == LabelPositive {
			c.Positive++
		} else {
			c.Negative++
		}
	}
	return c
}
