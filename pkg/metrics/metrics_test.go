package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRun("TSE", 0.4, nil)
	m.RecordRun("TSE", 0.2, errors.New("boom"))
	m.RecordRun("TSE", 0.3, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("TSE", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("TSE", "error")))
}

func TestRecordSkippedIgnoresZero(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSkipped("OTC", "flow", 0)
	m.RecordSkipped("OTC", "flow", 3)
	m.RecordDuplicates("OTC", 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilesSkipped.WithLabelValues("OTC", "flow")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicateCodes.WithLabelValues("OTC")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordResult("TSE", 4, 2, 1720000000)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `instflow_anomalous_securities{market="TSE"} 4`))
	assert.True(t, strings.Contains(body, `instflow_cross_listed_securities{market="TSE"} 2`))
}
