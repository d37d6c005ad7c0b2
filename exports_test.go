package RSClientGo

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExportExtractsArchive(t *testing.T) {
	mock := newMockPlatform(t, SubjectHostFinding, 0)
	mock.statuses = []ExportStatus{ExportStatusRunning, ExportStatusRunning, ExportStatusComplete}
	mock.archive = zipArchive(t, map[string]string{"report.csv": "id,title\n1,Weak TLS\n"})
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	fileName := filepath.Join(t.TempDir(), "myexport")
	dir, err := client.RunExport(SubjectHostFinding, []Filter{NewFilter("severity", FilterIn, "High,Critical")}, ExportOptions{
		FileName:    fileName,
		FileType:    ExportCSV,
		RowCountCap: 5000,
	})
	require.NoError(t, err)

	assert.Equal(t, fileName, dir)
	content, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,title\n1,Weak TLS\n", string(content))

	_, err = os.Stat(fileName + ".zip")
	assert.True(t, os.IsNotExist(err), "the archive is removed after extraction")

	assert.Equal(t, 3, mock.statusCalls)
	assert.Equal(t, 1, mock.downloads)

	require.Len(t, mock.exportBodies, 1)
	body := mock.exportBodies[0]
	assert.Equal(t, ExportCSV, body.FileType)
	assert.Equal(t, "myexport", body.FileName)
	assert.Equal(t, uint64(5000), body.RowCount)
	require.Len(t, body.FilterRequest.Filters, 1)
	assert.Equal(t, "severity", body.FilterRequest.Filters[0].Field)
	assert.Equal(t, testTemplate().ExportableFields, body.ExportableFields, "the subject default template is used")
	assert.Equal(t, []string{"/hostFinding/export/template"}, mock.templateGets)
}

func TestRunExportKeepArchive(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	mock.statuses = []ExportStatus{ExportStatusComplete}
	mock.archive = zipArchive(t, map[string]string{"hosts/part1.csv": "a", "hosts/part2.csv": "b"})
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	vars := client.GetClientVars()
	vars.ExportKeepArchive = true
	client.SetClientVars(vars)

	fileName := filepath.Join(t.TempDir(), "hosts.zip")
	dir, err := client.RunExport(SubjectHost, nil, ExportOptions{FileName: fileName, FileType: ExportXLSX})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(fileName), "hosts"), dir)
	assert.FileExists(t, fileName)
	assert.FileExists(t, filepath.Join(dir, "hosts", "part1.csv"))
	assert.FileExists(t, filepath.Join(dir, "hosts", "part2.csv"))
}

func TestRunExportJobError(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ExportStatus
		polls    int
	}{
		{name: "immediate error", statuses: []ExportStatus{ExportStatusError}, polls: 1},
		{name: "error after running", statuses: []ExportStatus{ExportStatusRunning, ExportStatusError}, polls: 2},
		{name: "error after queued", statuses: []ExportStatus{ExportStatusQueued, ExportStatusRunning, ExportStatusError}, polls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPlatform(t, SubjectApplicationFinding, 0)
			mock.statuses = tt.statuses
			server := startMock(t, mock)
			client := newTestClient(t, server.URL)

			fileName := filepath.Join(t.TempDir(), "failed")
			_, err := client.RunExport(SubjectApplicationFinding, nil, ExportOptions{FileName: fileName, FileType: ExportCSV})

			var failed *ExportFailedError
			require.True(t, errors.As(err, &failed), "unexpected error: %v", err)
			assert.Equal(t, uint64(42), failed.JobID)
			assert.Equal(t, tt.polls, mock.statusCalls)
			assert.Equal(t, 0, mock.downloads)
			assert.NoFileExists(t, fileName+".zip")
		})
	}
}

func TestExportPollingTimeout(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	mock.statuses = []ExportStatus{ExportStatusRunning}
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	start := time.Now()
	job, err := client.ExportPollingByIDWithTimeout(42, 1, 1)

	var timeout *ExportTimeoutError
	require.True(t, errors.As(err, &timeout), "unexpected error: %v", err)
	assert.Equal(t, ExportStatusRunning, timeout.LastStatus)
	assert.Equal(t, ExportStatusRunning, job.Status)
	assert.Equal(t, 2, mock.statusCalls)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestExportPollingDelayClampedToLimit(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	mock.statuses = []ExportStatus{ExportStatusRunning}
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	start := time.Now()
	_, err := client.ExportPollingByIDWithTimeout(42, 30, 1)

	var timeout *ExportTimeoutError
	require.True(t, errors.As(err, &timeout), "unexpected error: %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, 2, mock.statusCalls, "one check at the start and one at the limit")
}

func TestExportPollingRejectsNegativeValues(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	mock.statuses = []ExportStatus{ExportStatusComplete}
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	_, err := client.ExportPollingByIDWithTimeout(42, -1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")

	_, err = client.ExportPollingByIDWithTimeout(42, 1, -10)
	require.Error(t, err)
	assert.Equal(t, 0, mock.statusCalls)
}

func TestRunExportTruncatedDownload(t *testing.T) {
	mock := newMockPlatform(t, SubjectHostFinding, 0)
	mock.statuses = []ExportStatus{ExportStatusComplete}
	mock.archive = zipArchive(t, map[string]string{"report.csv": strings.Repeat("id,title\n1,Weak TLS\n", 200)})
	mock.truncateDownload = true
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	fileName := filepath.Join(t.TempDir(), "myexport")
	_, err := client.RunExport(SubjectHostFinding, nil, ExportOptions{FileName: fileName, FileType: ExportCSV})
	require.Error(t, err)

	var ioErr *ExportIOError
	assert.False(t, errors.As(err, &ioErr), "a broken response body is not a local file error: %v", err)
	var retryErr *MaxRetryError
	require.True(t, errors.As(err, &retryErr), "unexpected error: %v", err)
	assert.Equal(t, "GET", retryErr.Method)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "unexpected error: %v", err)

	_, statErr := os.Stat(fileName + ".zip")
	assert.True(t, os.IsNotExist(statErr), "the partial archive is removed")
	_, statErr = os.Stat(fileName)
	assert.True(t, os.IsNotExist(statErr), "nothing is extracted")
	assert.Equal(t, 1, mock.downloads)
}

func TestDownloadExportLocalFileError(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	mock.archive = zipArchive(t, map[string]string{"report.csv": "id\n"})
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	path := filepath.Join(t.TempDir(), "missing", "export.zip")
	err := client.DownloadExportByID(42, path)

	var ioErr *ExportIOError
	require.True(t, errors.As(err, &ioErr), "unexpected error: %v", err)
	assert.Equal(t, path, ioErr.Path)
	var retryErr *MaxRetryError
	assert.False(t, errors.As(err, &retryErr))
}

func TestExportTemplateChoice(t *testing.T) {
	override := []ExportFieldGroup{{Heading: "custom", Fields: []ExportField{{IdentifierField: "id", Selected: true}}}}

	tests := []struct {
		name          string
		choice        ExportTemplateChoice
		expectFetch   []string
		expectColumns []ExportFieldGroup
	}{
		{
			name:          "override skips template requests",
			choice:        ExportTemplateChoice{Override: override, TemplateID: 9},
			expectFetch:   nil,
			expectColumns: override,
		},
		{
			name:          "template id",
			choice:        ExportTemplateChoice{TemplateID: 9},
			expectFetch:   []string{"/export/template/9"},
			expectColumns: testTemplate().ExportableFields,
		},
		{
			name:          "subject default",
			choice:        ExportTemplateChoice{},
			expectFetch:   []string{"/host/export/template"},
			expectColumns: testTemplate().ExportableFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPlatform(t, SubjectHost, 0)
			mock.statuses = []ExportStatus{ExportStatusComplete}
			mock.archive = zipArchive(t, map[string]string{"hosts.csv": "id\n"})
			server := startMock(t, mock)
			client := newTestClient(t, server.URL)

			_, err := client.Hosts().Export(nil, ExportOptions{
				FileName: filepath.Join(t.TempDir(), "hosts"),
				FileType: ExportCSV,
				Template: tt.choice,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.expectFetch, mock.templateGets)
			require.Len(t, mock.exportBodies, 1)
			assert.Equal(t, tt.expectColumns, mock.exportBodies[0].ExportableFields)
		})
	}
}

func TestRequestExportValidation(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")

	_, err := client.RequestExport(SubjectHost, nil, ExportOptions{FileName: "x", FileType: "PDF"}, nil)
	assert.ErrorContains(t, err, "unsupported export file type")

	_, err = client.RequestExport(SubjectHost, []Filter{{Operator: FilterExact}}, ExportOptions{FileName: "x", FileType: ExportCSV}, nil)
	assert.ErrorContains(t, err, "has no field")

	_, err = client.RunExport(SubjectHost, nil, ExportOptions{FileType: ExportCSV})
	assert.ErrorContains(t, err, "requires a file name")
}

func TestExtractExportArchiveRejectsEscapingEntries(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "evil.zip")
	require.NoError(t, os.WriteFile(archive, zipArchive(t, map[string]string{"../outside.csv": "x"}), 0o644))

	err := ExtractExportArchive(archive, filepath.Join(tmp, "evil"))

	var ioErr *ExportIOError
	require.True(t, errors.As(err, &ioErr))
	assert.NoFileExists(t, filepath.Join(tmp, "outside.csv"))
}

func TestExtractExportArchiveCorrupt(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "broken.zip")
	require.NoError(t, os.WriteFile(archive, []byte("this is not a zip file"), 0o644))

	err := ExtractExportArchive(archive, filepath.Join(tmp, "broken"))

	var ioErr *ExportIOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, archive, ioErr.Path)
}

func TestExportStatusIsTerminal(t *testing.T) {
	assert.True(t, ExportStatusComplete.IsTerminal())
	assert.True(t, ExportStatusError.IsTerminal())
	assert.False(t, ExportStatusRunning.IsTerminal())
	assert.False(t, ExportStatusQueued.IsTerminal())
}
