package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidinfra/docvault/internal/audit"
	ierr "github.com/vidinfra/docvault/internal/errors"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("notes", &audit.Operation{Name: "DeleteOne", Soft: true}, nil)
	m.Observe("notes", &audit.Operation{Name: "UpdateOne"}, nil)
	m.Observe("notes", &audit.Operation{Name: "UpdateOne"}, ierr.NewError("deleted_at").Mark(ierr.ErrForbiddenFieldMutation))
	m.Observe("notes", &audit.Operation{Name: "FindOne"}, ierr.NewError("missing").Mark(ierr.ErrNotFound))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("notes", "DeleteOne", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("notes", "UpdateOne", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("notes", "UpdateOne", ierr.ErrCodeForbiddenFieldMutation)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("notes", "FindOne", ierr.ErrCodeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SoftDeletes.WithLabelValues("notes")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Rejections))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncEventConsumed(audit.Event{Collection: "notes", Action: audit.ActionCreated})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docvault_audit_events_consumed_total{action="created",collection="notes"} 1`)
}
