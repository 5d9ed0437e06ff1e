package lead

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/leadforge/leadforge/internal/domain"
)

const seqKey = domain.KeyPrefix + "seq:lead"

// store is the consumer interface for lead persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// Repo persists leads as one hash row per lead.
type Repo struct {
	store store
}

// New creates a lead repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert creates or updates a lead. Returns true if created. On update,
// embedding, is_seed, public identifier, company and text are overwritten
// unconditionally; label and labeled_at are written only when the stored row
// has no label yet and the incoming lead carries one. An existing label is
// never erased or moved.
func (r *Repo) Upsert(ctx context.Context, l *domain.Lead) (bool, error) {
	key := leadKey(l.ID)

	existing, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return false, fmt.Errorf("hgetall %s: %w", key, err)
	}
	created := len(existing) == 0

	fields := baseHashFields(l)

	if created {
		seq, err := r.store.IncrBy(ctx, seqKey, 1)
		if err != nil {
			return false, fmt.Errorf("alloc seq: %w", err)
		}
		fields[fieldSeq] = strconv.FormatInt(seq, 10)

		createdAt := l.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		fields[fieldCreatedAt] = formatTime(createdAt)

		status := l.Status
		if status == "" {
			status = domain.StatusImported
		}
		fields[fieldStatus] = string(status)
	}

	if existing[fieldLabel] == "" && l.Label != nil {
		fields[fieldLabel] = strconv.Itoa(int(*l.Label))
		fields[fieldLabelReason] = l.LabelReason
		labeledAt := time.Now()
		if l.LabeledAt != nil {
			labeledAt = *l.LabeledAt
		}
		fields[fieldLabeledAt] = formatTime(labeledAt)
	}

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return created, nil
}

// SetLabel writes label, reason and labeled_at unconditionally.
func (r *Repo) SetLabel(ctx context.Context, id string, label domain.Label, reason string) error {
	key := leadKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrLeadNotFound
	}

	fields := map[string]string{
		fieldLabel:       strconv.Itoa(int(label)),
		fieldLabelReason: reason,
		fieldLabeledAt:   formatTime(time.Now()),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// SetStatus moves a lead to the given lifecycle status.
func (r *Repo) SetStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	key := leadKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrLeadNotFound
	}

	if err := r.store.HSet(ctx, key, map[string]string{fieldStatus: string(status)}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns a lead by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Lead, error) {
	key := leadKey(id)

	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	return parseHashFields(m), nil
}

// List returns leads in insertion order with cursor-based pagination.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domain.Lead, string, error) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		offset = parsed
	}

	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, "", err
	}
	if offset >= len(all) {
		return nil, "", nil
	}

	end := offset + limit
	var nextCursor string
	if end < len(all) {
		nextCursor = strconv.Itoa(end)
	} else {
		end = len(all)
	}
	return all[offset:end], nextCursor, nil
}

// ByStatus returns all leads in the given status, in insertion order.
func (r *Repo) ByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Lead
	for _, l := range all {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

// Unlabeled returns all unlabeled, non-seed leads that carry an embedding,
// in insertion order.
func (r *Repo) Unlabeled(ctx context.Context) ([]domain.Lead, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Lead
	for _, l := range all {
		if !l.Labeled() && !l.IsSeed && l.Embedded() {
			out = append(out, l)
		}
	}
	return out, nil
}

// PositiveCentroid returns the mean embedding over all positively labeled
// leads. Returns domain.ErrNoCentroid when none exist.
func (r *Repo) PositiveCentroid(ctx context.Context) ([]float32, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var vectors [][]float32
	for _, l := range all {
		if l.Labeled() && *l.Label == domain.LabelPositive && l.Embedded() {
			vectors = append(vectors, l.Embedding)
		}
	}
	return domain.Centroid(vectors)
}

// UnlabeledBySimilarity returns unlabeled, non-seed leads ordered by
// descending cosine similarity to the positive centroid. Returns an empty
// list when no centroid exists. limit <= 0 means no limit.
func (r *Repo) UnlabeledBySimilarity(ctx context.Context, limit int) ([]domain.Lead, error) {
	centroid, err := r.PositiveCentroid(ctx)
	if errors.Is(err, domain.ErrNoCentroid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	leads, err := r.Unlabeled(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(leads, func(i, j int) bool {
		return domain.CosineSimilarity(leads[i].Embedding, centroid) >
			domain.CosineSimilarity(leads[j].Embedding, centroid)
	})

	if limit > 0 && len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}

// LabeledDataset returns all (embedding, label) pairs with a label, as
// parallel arrays. Arrays are empty, not nil, when no labeled data exists.
func (r *Repo) LabeledDataset(ctx context.Context) (domain.Dataset, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}

	ds := domain.Dataset{Vectors: [][]float32{}, Labels: []domain.Label{}}
	for _, l := range all {
		if l.Labeled() && l.Embedded() {
			ds.Vectors = append(ds.Vectors, l.Embedding)
			ds.Labels = append(ds.Labels, *l.Label)
		}
	}
	return ds, nil
}

// CountLabeled returns counts of positive, negative and total labeled leads.
func (r *Repo) CountLabeled(ctx context.Context) (domain.LabelCounts, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return domain.LabelCounts{}, err
	}

	var c domain.LabelCounts
	for _, l := range all {
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

// loadAll fetches every lead row and sorts by insertion order.
func (r *Repo) loadAll(ctx context.Context) ([]domain.Lead, error) {
	keys, err := r.store.Scan(ctx, domain.KeyPrefix+"lead:*")
	if err != nil {
		return nil, fmt.Errorf("scan leads: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}

	leads := make([]domain.Lead, 0, len(rows))
	for _, m := range rows {
		if len(m) == 0 {
			continue
		}
		leads = append(leads, parseHashFields(m))
	}

	sort.Slice(leads, func(i, j int) bool { return leads[i].Seq < leads[j].Seq })
	return leads, nil
}

func leadKey(id string) string {
	return domain.KeyPrefix + "lead:" + id
}
