package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-categorizer/internal/classifier"
	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/metrics"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
)

const holder = "MARIA SILVA"

func clock() time.Time {
	return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func newDriver(t *testing.T, p parser.IssuerProfile, opts ...Option) *Driver {
	t.Helper()
	resolved, err := p.Resolve(holder)
	require.NoError(t, err)
	c, err := classifier.New(classifier.DefaultRuleSet())
	require.NoError(t, err)
	return NewDriver(resolved, c, append([]Option{WithClock(clock)}, opts...)...)
}

type mapSource map[string][]string

func (m mapSource) Pages(path string) ([]string, error) {
	pages, ok := m[path]
	if !ok {
		return nil, errors.New("open " + path + ": no such file or directory")
	}
	return pages, nil
}

func TestRun_BradescoScenario(t *testing.T) {
	d := newDriver(t, parser.BradescoProfile())

	res, err := d.Run(context.Background(), []Document{{Name: "fatura.pdf", Pages: []string{"15/03 UBER TRIP 23,50"}}})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 1)
	got := res.Transactions[0]
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, "UBER TRIP", got.Descriptor)
	assert.Equal(t, "23.50", got.Amount.StringFixed(2))
	assert.Equal(t, "TRANSPORTE", got.Category)
	assert.Equal(t, models.IssuerBradesco, res.Issuer)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_NubankScenario(t *testing.T) {
	d := newDriver(t, parser.NubankProfile())

	res, err := d.Run(context.Background(), []Document{{
		Name:  "Nubank_2024-03.pdf",
		Pages: []string{"Fatura\nTRANSAÇÕES\n10 MAR STARBUCKS CAFE -12,90\nMARIA SILVA"},
	}})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 1)
	got := res.Transactions[0]
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, "STARBUCKS CAFE", got.Descriptor)
	assert.Equal(t, "-12.90", got.Amount.StringFixed(2))
	assert.Equal(t, "ALIMENTACAO", got.Category)
}

func TestRun_ExcludedTermsNeverAppear(t *testing.T) {
	tests := []struct {
		name    string
		profile parser.IssuerProfile
		doc     Document
	}{
		{
			name:    "bradesco exact",
			profile: parser.BradescoProfile(),
			doc:     Document{Name: "b.pdf", Pages: []string{"10/03 PAGTO ANTECIPADO PIX 500,00 11/03 PADARIA 8,00"}},
		},
		{
			name:    "nubank contains",
			profile: parser.NubankProfile(),
			doc:     Document{Name: "2024-03.pdf", Pages: []string{"TRANSAÇÕES 10 MAR PAGTO ANTECIPADO PIX 500,00 11 MAR PADARIA 8,00 MARIA SILVA"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newDriver(t, tt.profile).Run(context.Background(), []Document{tt.doc})
			require.NoError(t, err)

			require.Len(t, res.Transactions, 1)
			assert.Equal(t, "PADARIA", res.Transactions[0].Descriptor)
			assert.Equal(t, 1, res.Documents[0].Excluded)
			for _, tx := range res.Transactions {
				assert.NotContains(t, tx.Descriptor, "PAGTO ANTECIPADO PIX")
			}
		})
	}
}

func TestRun_NubankDedupAcrossDocuments(t *testing.T) {
	d := newDriver(t, parser.NubankProfile())
	page := "TRANSAÇÕES 10 MAR STARBUCKS CAFE 12,90 11 MAR UBER TRIP 7,35 MARIA SILVA"

	res, err := d.Run(context.Background(), []Document{
		{Name: "2024-03.pdf", Pages: []string{page}},
		{Name: "2024-03-segunda-via.pdf", Pages: []string{page}},
	})
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 2)
	assert.Equal(t, 2, res.Documents[0].Admitted)
	assert.Equal(t, 2, res.Documents[1].Duplicates)
	assert.Zero(t, res.Documents[1].Admitted)
}

func TestRun_BradescoKeepsRepeats(t *testing.T) {
	d := newDriver(t, parser.BradescoProfile())
	page := "15/03 UBER TRIP 23,50 15/03 UBER TRIP 23,50"

	res, err := d.Run(context.Background(), []Document{{Name: "b.pdf", Pages: []string{page}}})
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 2)
	assert.Zero(t, res.Documents[0].Duplicates)
}

func TestRun_PageAnchors(t *testing.T) {
	d := newDriver(t, parser.BradescoProfile())

	res, err := d.Run(context.Background(), []Document{{
		Name: "b.pdf",
		Pages: []string{
			"01/01 CABECALHO 1,00\nMARIA SILVA\n15/03 UBER TRIP 23,50\nResumo das Despesas\n02/02 RODAPE 2,00",
			"Dólar R$ 5,20\n16/03 PADARIA REAL 1.234,56\nTotal para MARIA SILVA 1.258,06",
		},
	}})
	require.NoError(t, err)

	var descriptors []string
	for _, tx := range res.Transactions {
		descriptors = append(descriptors, tx.Descriptor)
	}
	assert.Equal(t, []string{"UBER TRIP", "PADARIA REAL"}, descriptors)
	assert.Equal(t, 2, res.Documents[0].Pages)
}

func TestRun_RejectedRecordsAreCounted(t *testing.T) {
	d := newDriver(t, parser.BradescoProfile())

	res, err := d.Run(context.Background(), []Document{{Name: "b.pdf", Pages: []string{"31/02 LOJA 1,00 15/03 UBER 2,00"}}})
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 1)
	assert.Equal(t, 2, res.Documents[0].Extracted)
	assert.Equal(t, 1, res.Documents[0].Rejected)
}

func TestRunFiles_ContinuesAfterReadFailure(t *testing.T) {
	src := mapSource{
		"/faturas/2024-02.pdf": {"TRANSAÇÕES 05 FEV NETFLIX 39,90 MARIA SILVA"},
		"/faturas/2024-03.pdf": {"TRANSAÇÕES 10 MAR STARBUCKS CAFE 12,90 MARIA SILVA"},
	}
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	d := newDriver(t, parser.NubankProfile(), WithSource(src))

	res, err := d.RunFiles(ctx, []string{"/faturas/2024-02.pdf", "/faturas/broken.pdf", "/faturas/2024-03.pdf"})
	require.NoError(t, err)

	require.Len(t, res.Documents, 3)
	assert.Equal(t, "2024-02.pdf", res.Documents[0].Name)
	assert.Contains(t, res.Documents[1].Err, "no such file")
	assert.Empty(t, res.Documents[2].Err)
	assert.Len(t, res.Transactions, 2)
	assert.Equal(t, time.February, res.Transactions[0].Date.Month())

	assert.Contains(t, buf.String(), "failed to read document")
	assert.Contains(t, buf.String(), `"run_id":"`+res.RunID+`"`)
	assert.Contains(t, buf.String(), "processed document")
}

func TestRunFiles_NoSource(t *testing.T) {
	d := newDriver(t, parser.NubankProfile())

	_, err := d.RunFiles(context.Background(), []string{"a.pdf"})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	d := newDriver(t, parser.BradescoProfile())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Run(ctx, []Document{{Name: "b.pdf", Pages: []string{"15/03 UBER TRIP 23,50"}}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Transactions)
}

// cancelOnClassify cancels the run the first time it is asked for a category.
type cancelOnClassify struct {
	cancel context.CancelFunc
}

func (c cancelOnClassify) Classify(context.Context, string) classifier.Result {
	c.cancel()
	return classifier.Result{Category: "LAZER", Source: classifier.SourceRule}
}

func TestRun_CancelledMidDocument(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resolved, err := parser.BradescoProfile().Resolve(holder)
	require.NoError(t, err)
	d := NewDriver(resolved, cancelOnClassify{cancel: cancel}, WithClock(clock))

	res, err := d.Run(ctx, []Document{
		{Name: "a.pdf", Pages: []string{"15/03 UBER TRIP 23,50 16/03 PADARIA REAL 8,00 17/03 XKCD LTDA 1,00"}},
		{Name: "b.pdf", Pages: []string{"18/03 CINEMA 30,00"}},
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "UBER TRIP", res.Transactions[0].Descriptor)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, 1, res.Documents[0].Extracted)
	assert.Equal(t, 1, res.Documents[0].Admitted)
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)
	d := newDriver(t, parser.BradescoProfile(), WithMetrics(m), WithSource(mapSource{}))

	_, err := d.Run(context.Background(), []Document{{Name: "b.pdf", Pages: []string{"15/03 UBER TRIP 23,50 16/03 PAGTO ANTECIPADO PIX 9,00"}}})
	require.NoError(t, err)
	_, err = d.RunFiles(context.Background(), []string{"missing.pdf"})
	require.NoError(t, err)

	expected := `
# HELP statement_categorizer_documents_total Documents processed, by status.
# TYPE statement_categorizer_documents_total counter
statement_categorizer_documents_total{issuer="bradesco",status="error"} 1
statement_categorizer_documents_total{issuer="bradesco",status="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "statement_categorizer_documents_total"))
}
