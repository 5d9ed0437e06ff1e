// Package seeds imports known-good profiles as pre-labeled positives. Seeds
// anchor the positive centroid and the first training sets, and enter the
// connect backlog ahead of model-ranked candidates.
package seeds

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/domain/profile"
)

// SeedReason is the audit reason written to every imported seed.
const SeedReason = "seed import"

// LeadStore is the subset of the lead repository the loader uses.
type LeadStore interface {
	Upsert(ctx context.Context, l *domain.Lead) (bool, error)
}

// Loader imports seed profiles from CSV.
type Loader struct {
	store    LeadStore
	embedder domain.Embedder
	logger   *zap.Logger
}

// New creates a seed loader.
func New(store LeadStore, embedder domain.Embedder, logger *zap.Logger) *Loader {
	return &Loader{store: store, embedder: embedder, logger: logger}
}

// ImportFile reads a seed CSV from disk. Returns the number of seeds imported.
func (l *Loader) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()

	return l.Import(ctx, f)
}

// Import reads seed rows and stores each as an embedded, labeled positive in
// the connect backlog. Expected header columns: public_identifier, headline,
// summary, location, industry, company, title (any order; extras ignored).
// Rows without an identifier or without usable text are skipped.
func (l *Loader) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read seeds header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := idx["public_identifier"]; !ok {
		return 0, errors.New("seed csv: missing public_identifier column")
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read seeds line %d: %w", line, err)
		}

		p := profile.Profile{
			PublicIdentifier: field(row, "public_identifier"),
			Headline:         field(row, "headline"),
			Summary:          field(row, "summary"),
			LocationName:     field(row, "location"),
			IndustryName:     field(row, "industry"),
		}
		if title, company := field(row, "title"), field(row, "company"); title != "" || company != "" {
			p.Positions = append(p.Positions, profile.Position{Title: title, CompanyName: company})
		}

		if p.PublicIdentifier == "" {
			l.logger.Warn("Seed row has no public_identifier, skipping", zap.Int("line", line))
			continue
		}
		if p.Empty() {
			l.logger.Warn("Seed row has no profile text, skipping",
				zap.Int("line", line),
				zap.String("public_identifier", p.PublicIdentifier),
			)
			continue
		}

		text := p.Text()
		result, err := l.embedder.Embed(ctx, text)
		if err != nil {
			return imported, fmt.Errorf("embed seed %s: %w", p.PublicIdentifier, err)
		}

		label := domain.LabelPositive
		lead := domain.Lead{
			ID:               p.PublicIdentifier,
			PublicIdentifier: p.PublicIdentifier,
			Company:          p.CurrentCompany(),
			Text:             text,
			Embedding:        result.Embedding,
			IsSeed:           true,
			Label:            &label,
			LabelReason:      SeedReason,
			Status:           domain.StatusQualified,
		}
		if _, err := l.store.Upsert(ctx, &lead); err != nil {
			return imported, fmt.Errorf("store seed %s: %w", p.PublicIdentifier, err)
		}
		imported++

		l.logger.Debug("Seed imported",
			zap.String("public_identifier", p.PublicIdentifier),
			zap.Int("tokens", result.TotalTokens),
		)
	}

	l.logger.Info("Seed import finished", zap.Int("imported", imported))
	return imported, nil
}
