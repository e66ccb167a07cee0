package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipeline(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.Document("nubank", "ok")
	p.Records("nubank", OutcomeAdmitted, 3)
	p.Records("nubank", OutcomeDuplicate, 0)
	p.Classified("LAZER", "fallback")
	p.FallbackCall(120*time.Millisecond, nil)
	p.FallbackCall(time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.documents.WithLabelValues("nubank", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.records.WithLabelValues("nubank", OutcomeAdmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.classifications.WithLabelValues("LAZER", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fallbackErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(p.fallbackLatency))
}

func TestPipeline_Nil(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.Document("bradesco", "error")
		p.Records("bradesco", OutcomeRejected, 1)
		p.Classified("OTHERS", "default")
		p.FallbackCall(time.Second, nil)
	})
}
