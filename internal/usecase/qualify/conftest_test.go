package qualify

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
)

// memStore is a stateful in-memory LeadStore sharing the repository's
// semantics: insertion order, label-once bookkeeping, centroid over
// positives.
type memStore struct {
	leads []domain.Lead

	labelCalls   []labelCall
	unlabeledErr error
}

type labelCall struct {
	id     string
	label  domain.Label
	reason string
}

func (m *memStore) add(l domain.Lead) {
	if l.Status == "" {
		l.Status = domain.StatusQualifying
	}
	m.leads = append(m.leads, l)
}

func (m *memStore) find(id string) *domain.Lead {
	for i := range m.leads {
		if m.leads[i].ID == id {
			return &m.leads[i]
		}
	}
	return nil
}

func (m *memStore) ByStatus(_ context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, l := range m.leads {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, l *domain.Lead) (bool, error) {
	if existing := m.find(l.ID); existing != nil {
		existing.Embedding = l.Embedding
		existing.Text = l.Text
		return false, nil
	}
	m.leads = append(m.leads, *l)
	return true, nil
}

func (m *memStore) SetStatus(_ context.Context, id string, status domain.LeadStatus) error {
	l := m.find(id)
	if l == nil {
		return domain.ErrLeadNotFound
	}
	l.Status = status
	return nil
}

func (m *memStore) SetLabel(_ context.Context, id string, label domain.Label, reason string) error {
	l := m.find(id)
	if l == nil {
		return domain.ErrLeadNotFound
	}
	l.Label = &label
	l.LabelReason = reason
	m.labelCalls = append(m.labelCalls, labelCall{id: id, label: label, reason: reason})
	return nil
}

func (m *memStore) Unlabeled(_ context.Context) ([]domain.Lead, error) {
	if m.unlabeledErr != nil {
		return nil, m.unlabeledErr
	}
	var out []domain.Lead
	for _, l := range m.leads {
		if !l.Labeled() && !l.IsSeed && l.Embedded() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) PositiveCentroid(_ context.Context) ([]float32, error) {
	var vectors [][]float32
	for _, l := range m.leads {
		if l.Labeled() && *l.Label == domain.LabelPositive && l.Embedded() {
			vectors = append(vectors, l.Embedding)
		}
	}
	return domain.Centroid(vectors)
}

func (m *memStore) LabeledDataset(_ context.Context) (domain.Dataset, error) {
	ds := domain.Dataset{Vectors: [][]float32{}, Labels: []domain.Label{}}
	for _, l := range m.leads {
		if l.Labeled() && l.Embedded() {
			ds.Vectors = append(ds.Vectors, l.Embedding)
			ds.Labels = append(ds.Labels, *l.Label)
		}
	}
	return ds, nil
}

func (m *memStore) CountLabeled(_ context.Context) (domain.LabelCounts, error) {
	var c domain.LabelCounts
	for _, l := range m.leads {
		if !l.Labeled() {
			continue
		}
		c.Total++
		if *l.Label == domain.LabelPositive {
			c.Positive++
		} else {
			c.Negative++
		}
	}
	return c, nil
}

// --- collaborator mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type oracleCall struct {
	profileText      string
	productContext   string
	objectiveContext string
}

type mockOracle struct {
	result domain.OracleResult
	err    error
	calls  []oracleCall
}

func (m *mockOracle) Qualify(_ context.Context, profileText, productContext, objectiveContext string) (domain.OracleResult, error) {
	m.calls = append(m.calls, oracleCall{profileText, productContext, objectiveContext})
	if m.err != nil {
		return domain.OracleResult{}, m.err
	}
	return m.result, nil
}

// mockClassifier drives selection and auto-decisions through func fields.
// Scoring funcs default to panicking so tests catch unexpected scoring.
type mockClassifier struct {
	trained      bool
	distribution func(x []float32) []float64
	probability  func(x []float32) float64
	bald         func(x []float32) float64
	retrainAt    int // NeedsRetrain true when totalLabeled >= retrainAt; 0 = never

	probabilityCalls int
	baldCalls        int
	trainedWith      []domain.Dataset
	trainOK          bool
}

func (m *mockClassifier) Trained() bool { return m.trained }

func (m *mockClassifier) PredictDistribution(x []float32) []float64 {
	if !m.trained {
		return nil
	}
	if m.distribution == nil {
		return []float64{0.5, 0.5}
	}
	return m.distribution(x)
}

func (m *mockClassifier) PredictedProbability(x []float32) float64 {
	m.probabilityCalls++
	if m.probability == nil {
		panic(fmt.Sprintf("unexpected PredictedProbability call for %v", x))
	}
	return m.probability(x)
}

func (m *mockClassifier) BALDScore(x []float32) float64 {
	m.baldCalls++
	if m.bald == nil {
		panic(fmt.Sprintf("unexpected BALDScore call for %v", x))
	}
	return m.bald(x)
}

func (m *mockClassifier) NeedsRetrain(totalLabeled int) bool {
	return m.retrainAt > 0 && totalLabeled >= m.retrainAt
}

func (m *mockClassifier) Train(_ context.Context, ds domain.Dataset) (bool, error) {
	m.trainedWith = append(m.trainedWith, ds)
	return m.trainOK, nil
}

type disqualifyCall struct {
	id     string
	reason string
}

type mockPromoter struct {
	promoteErr   error
	promoted     []string
	disqualified []disqualifyCall
}

func (m *mockPromoter) Promote(_ context.Context, id string) error {
	if m.promoteErr != nil {
		return m.promoteErr
	}
	m.promoted = append(m.promoted, id)
	return nil
}

func (m *mockPromoter) Disqualify(_ context.Context, id, reason string) error {
	m.disqualified = append(m.disqualified, disqualifyCall{id: id, reason: reason})
	return nil
}

type testHarness struct {
	store      *memStore
	embedder   *mockEmbedder
	oracle     *mockOracle
	classifier *mockClassifier
	promoter   *mockPromoter
	svc        *Service
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		store:      &memStore{},
		embedder:   &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}},
		oracle:     &mockOracle{result: domain.OracleResult{Decision: domain.Decision{Qualified: true, Reason: "fits the campaign"}}},
		classifier: &mockClassifier{},
		promoter:   &mockPromoter{},
	}
	h.svc = New(h.store, h.embedder, h.oracle, h.classifier, h.promoter, Params{
		EntropyThreshold: 0.3,
		ProductContext:   "widget docs",
		ObjectiveContext: "book a demo",
	}, zap.NewNop())
	return h
}

// qualifying builds an embedded, unlabeled candidate.
func qualifying(id string, embedding []float32) domain.Lead {
	return domain.Lead{
		ID:               id,
		PublicIdentifier: id + "-pub",
		Company:          "Acme",
		Text:             "cto acme berlin",
		Embedding:        embedding,
		Status:           domain.StatusQualifying,
	}
}

// labeled builds a labeled, embedded lead.
func labeled(id string, embedding []float32, label domain.Label) domain.Lead {
	l := qualifying(id, embedding)
	l.Label = &label
	l.LabelReason = "test fixture"
	if label == domain.LabelPositive {
		l.Status = domain.StatusQualified
	} else {
		l.Status = domain.StatusDisqualified
	}
	return l
}
