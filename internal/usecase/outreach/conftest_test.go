package outreach

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
)

// --- Mock LeadStore ---

type statusCall struct {
	id     string
	status domain.LeadStatus
}

type memStore struct {
	leads        []domain.Lead
	statusCalls  []statusCall
	byStatusErr  error
	setStatusErr error
}

func (m *memStore) add(l domain.Lead) {
	l.Seq = int64(len(m.leads) + 1)
	m.leads = append(m.leads, l)
}

func (m *memStore) Get(_ context.Context, id string) (domain.Lead, error) {
	for _, l := range m.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Lead{}, domain.ErrLeadNotFound
}

func (m *memStore) ByStatus(_ context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	if m.byStatusErr != nil {
		return nil, m.byStatusErr
	}
	var out []domain.Lead
	for _, l := range m.leads {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, id string, status domain.LeadStatus) error {
	if m.setStatusErr != nil {
		return m.setStatusErr
	}
	for i := range m.leads {
		if m.leads[i].ID == id {
			m.leads[i].Status = status
			m.statusCalls = append(m.statusCalls, statusCall{id: id, status: status})
			return nil
		}
	}
	return domain.ErrLeadNotFound
}

func (m *memStore) statusOf(t *testing.T, id string) domain.LeadStatus {
	t.Helper()
	for _, l := range m.leads {
		if l.ID == id {
			return l.Status
		}
	}
	t.Fatalf("lead %s not in store", id)
	return ""
}

// --- Mock Ranker ---

// mockRanker reverses the batch so tests can tell ranked from stored order.
type mockRanker struct {
	reverse bool
	err     error
	calls   int
}

func (m *mockRanker) Rank(_ context.Context, candidates []domain.Lead) ([]domain.Lead, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if !m.reverse {
		return candidates, nil
	}
	out := make([]domain.Lead, len(candidates))
	for i, l := range candidates {
		out[len(candidates)-1-i] = l
	}
	return out, nil
}

// --- Mock Messenger ---

type mockMessenger struct {
	connectErr  error
	followUpErr error
	connected   []string
	followedUp  []string
}

func (m *mockMessenger) Connect(_ context.Context, lead domain.Lead) error {
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = append(m.connected, lead.ID)
	return nil
}

func (m *mockMessenger) FollowUp(_ context.Context, lead domain.Lead) error {
	if m.followUpErr != nil {
		return m.followUpErr
	}
	m.followedUp = append(m.followedUp, lead.ID)
	return nil
}

// --- Mock ActionLimiter ---

type mockLimiter struct {
	blocked   bool
	recorded  int
	exhausted bool
}

func (m *mockLimiter) CanExecute() bool { return !m.blocked }
func (m *mockLimiter) Record()          { m.recorded++ }
func (m *mockLimiter) MarkExhausted()   { m.exhausted = true }

// --- Harness ---

type testHarness struct {
	store     *memStore
	ranker    *mockRanker
	messenger *mockMessenger
	connect   *mockLimiter
	followUp  *mockLimiter
	service   *Service
}

func newTestHarness(_ *testing.T) *testHarness {
	h := &testHarness{
		store:     &memStore{},
		ranker:    &mockRanker{},
		messenger: &mockMessenger{},
		connect:   &mockLimiter{},
		followUp:  &mockLimiter{},
	}
	h.service = New(h.store, h.ranker, h.messenger, h.connect, h.followUp, zap.NewNop())
	return h
}

func qualified(id string) domain.Lead {
	return domain.Lead{
		ID:               id,
		PublicIdentifier: id,
		Company:          "acme",
		Status:           domain.StatusQualified,
	}
}

func connected(id string) domain.Lead {
	return domain.Lead{
		ID:               id,
		PublicIdentifier: id,
		Company:          "acme",
		Status:           domain.StatusConnected,
	}
}
