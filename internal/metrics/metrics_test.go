package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCatalogScan(t *testing.T) {
	scansBefore := testutil.ToFloat64(catalogScans)
	errorsBefore := testutil.ToFloat64(catalogScanErrors)

	ObserveCatalogScan(4, 2*time.Millisecond, false)
	ObserveCatalogScan(1, time.Millisecond, true)

	assert.Equal(t, scansBefore+2, testutil.ToFloat64(catalogScans))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(catalogScanErrors))
	assert.Equal(t, float64(1), testutil.ToFloat64(catalogSongs))
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "404"))
	ObserveRequest("GET", 404)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "404")))
}

func TestIncLibraryEvent(t *testing.T) {
	before := testutil.ToFloat64(libraryEvents.WithLabelValues("create"))
	IncLibraryEvent("create")
	assert.Equal(t, before+1, testutil.ToFloat64(libraryEvents.WithLabelValues("create")))
}

func TestHandlerExposesSeries(t *testing.T) {
	ObserveCatalogScan(2, time.Millisecond, false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "tunedeck_catalog_scans_total"))
	assert.True(t, strings.Contains(string(body), "tunedeck_catalog_scan_duration_seconds_bucket"))
}
