package RSClientGo

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMetrics(t *testing.T) {
	mock := newMockPlatform(t, SubjectNetwork, 5)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	pagesBefore := testutil.ToFloat64(rsSearchPagesTotal.WithLabelValues("network"))
	okBefore := testutil.ToFloat64(rsRequestsTotal.WithLabelValues(http.MethodPost, "200"))

	request := client.NewSearchRequest(SubjectNetwork, nil)
	request.Size = 2
	_, err := client.SearchAll(SubjectNetwork, request)
	require.NoError(t, err)

	// probe plus three pages
	assert.Equal(t, float64(4), testutil.ToFloat64(rsSearchPagesTotal.WithLabelValues("network"))-pagesBefore)
	assert.GreaterOrEqual(t, testutil.ToFloat64(rsRequestsTotal.WithLabelValues(http.MethodPost, "200"))-okBefore, float64(4))
}

func TestExportMetrics(t *testing.T) {
	mock := newMockPlatform(t, SubjectWeakness, 0)
	mock.statuses = []ExportStatus{ExportStatusError}
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	before := testutil.ToFloat64(rsExportsTotal.WithLabelValues("weakness", "job_error"))
	_, err := client.RunExport(SubjectWeakness, nil, ExportOptions{FileName: filepath.Join(t.TempDir(), "w"), FileType: ExportCSV})
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(rsExportsTotal.WithLabelValues("weakness", "job_error"))-before)
}
