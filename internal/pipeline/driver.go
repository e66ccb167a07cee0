// Package pipeline runs statement documents through segmentation, parsing,
// normalization, classification and deduplication.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-categorizer/internal/classifier"
	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/metrics"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/normalizer"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
)

// Document is one statement as page texts. Name is used for the YYYY-MM
// date context.
type Document struct {
	Name  string
	Pages []string
}

// TextSource turns a file into page texts.
type TextSource interface {
	Pages(path string) ([]string, error)
}

// Categorizer assigns a category to a descriptor and never fails.
type Categorizer interface {
	Classify(ctx context.Context, descriptor string) classifier.Result
}

// Driver processes documents one at a time under a single issuer profile.
type Driver struct {
	profile    *parser.IssuerProfile
	normalizer *normalizer.Normalizer
	classifier Categorizer
	source     TextSource
	metrics    *metrics.Pipeline
	now        func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithSource sets the text source used by RunFiles.
func WithSource(s TextSource) Option {
	return func(d *Driver) { d.source = s }
}

// WithMetrics records document and record outcomes.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithClock replaces time.Now for year resolution.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver builds a driver for a resolved profile.
func NewDriver(p *parser.IssuerProfile, c Categorizer, opts ...Option) *Driver {
	d := &Driver{
		profile:    p,
		classifier: c,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.normalizer = normalizer.New(p, d.now)
	return d
}

// Run processes documents in order and returns the accumulated result. It
// fails only when ctx is done; the partial result is returned with the error.
func (d *Driver) Run(ctx context.Context, docs []Document) (*models.RunResult, error) {
	return d.run(ctx, len(docs), func(i int) (Document, error) {
		return docs[i], nil
	})
}

// RunFiles reads each path through the text source and processes it. A file
// that cannot be read is logged and recorded in its stats; the run goes on.
func (d *Driver) RunFiles(ctx context.Context, paths []string) (*models.RunResult, error) {
	if d.source == nil {
		return nil, errors.New("pipeline: no text source configured")
	}
	return d.run(ctx, len(paths), func(i int) (Document, error) {
		pages, err := d.source.Pages(paths[i])
		return Document{Name: filepath.Base(paths[i]), Pages: pages}, err
	})
}

func (d *Driver) run(ctx context.Context, n int, load func(int) (Document, error)) (*models.RunResult, error) {
	runID := uuid.NewString()
	log := logger.WithFields(logger.FromContext(ctx), map[string]any{
		"run_id": runID,
		"issuer": string(d.profile.Issuer),
	})
	ctx = logger.WithContext(ctx, log)

	result := &models.RunResult{
		RunID:  runID,
		Issuer: d.profile.Issuer,
	}
	ledger := NewLedger(d.profile.Dedup)
	issuer := string(d.profile.Issuer)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			result.Transactions = ledger.Transactions()
			return result, err
		}

		doc, err := load(i)
		if err != nil {
			log.Error().Err(err).Str("document", doc.Name).Msg("failed to read document")
			result.Documents = append(result.Documents, models.DocumentStats{Name: doc.Name, Err: err.Error()})
			d.metrics.Document(issuer, "error")
			continue
		}

		stats := d.process(ctx, doc, ledger)
		result.Documents = append(result.Documents, stats)
		if err := ctx.Err(); err != nil {
			result.Transactions = ledger.Transactions()
			return result, err
		}
		d.metrics.Document(issuer, "ok")
		d.metrics.Records(issuer, metrics.OutcomeExtracted, stats.Extracted)
		d.metrics.Records(issuer, metrics.OutcomeExcluded, stats.Excluded)
		d.metrics.Records(issuer, metrics.OutcomeRejected, stats.Rejected)
		d.metrics.Records(issuer, metrics.OutcomeDuplicate, stats.Duplicates)
		d.metrics.Records(issuer, metrics.OutcomeAdmitted, stats.Admitted)

		log.Info().
			Str("document", doc.Name).
			Int("extracted", stats.Extracted).
			Int("admitted", stats.Admitted).
			Int("total", ledger.Len()).
			Msg("processed document")
	}

	result.Transactions = ledger.Transactions()
	return result, nil
}

// process runs one document through every stage and admits the survivors.
// It stops at the next record once ctx is done.
func (d *Driver) process(ctx context.Context, doc Document, ledger *Ledger) models.DocumentStats {
	stats := models.DocumentStats{Name: doc.Name, Pages: len(doc.Pages)}

	segments := make([]string, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		if seg := parser.Extract(page, i, d.profile); seg != "" {
			segments = append(segments, seg)
		}
	}
	flat := parser.Flatten(segments)
	dateCtx := normalizer.ContextFromFilename(doc.Name, d.now())

	for triple := range parser.Parse(flat, d.profile) {
		if ctx.Err() != nil {
			break
		}
		stats.Extracted++

		tx, err := d.normalizer.Normalize(ctx, triple, dateCtx)
		if errors.Is(err, normalizer.ErrExcluded) {
			stats.Excluded++
			continue
		}
		if err != nil {
			stats.Rejected++
			continue
		}

		tx.Category = d.classifier.Classify(ctx, tx.Descriptor).Category
		if ledger.Admit(tx) {
			stats.Admitted++
		} else {
			stats.Duplicates++
		}
	}
	return stats
}
