package RSClientGo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchAllThreeRecordsPageSizeOne(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 3)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	request := client.NewSearchRequest(SubjectHost, []Filter{})
	request.Size = 1

	records, err := client.SearchAll(SubjectHost, request)
	require.NoError(t, err)

	// one page-info probe, then pages 0, 1, 2
	assert.Equal(t, []uint64{0, 0, 1, 2}, mock.searchedPages())
	assert.Equal(t, []int{1, 2, 3}, recordIDs(t, records))
}

func TestSearchAllPageCompleteness(t *testing.T) {
	tests := []struct {
		records  int
		pageSize uint64
	}{
		{records: 1, pageSize: 1},
		{records: 5, pageSize: 2},
		{records: 10, pageSize: 5},
		{records: 11, pageSize: 5},
		{records: 7, pageSize: 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d records in pages of %d", tt.records, tt.pageSize), func(t *testing.T) {
			mock := newMockPlatform(t, SubjectHostFinding, tt.records)
			server := startMock(t, mock)
			client := newTestClient(t, server.URL)

			request := client.NewSearchRequest(SubjectHostFinding, nil)
			request.Size = tt.pageSize

			records, err := client.SearchAll(SubjectHostFinding, request)
			require.NoError(t, err)

			expectedPages := (uint64(tt.records) + tt.pageSize - 1) / tt.pageSize
			pages := mock.searchedPages()
			require.Len(t, pages, int(expectedPages)+1)
			for id, page := range pages[1:] {
				assert.Equal(t, uint64(id), page, "pages must be fetched in ascending order")
			}
			assert.Equal(t, sequence(tt.records), recordIDs(t, records))
		})
	}
}

func TestSearchAllEmptyResult(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 0)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	records, err := client.SearchAllFiltered(SubjectHost, nil)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Equal(t, []uint64{0}, mock.searchedPages(), "only the page-info probe is expected")
}

func TestSearchAllDiscardsPartialResultsOnFailure(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 5)
	mock.failPage = 1
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	request := client.NewSearchRequest(SubjectHost, nil)
	request.Size = 2

	records, err := client.SearchAll(SubjectHost, request)
	require.Error(t, err)
	assert.Nil(t, records)

	var statusErr *StatusCodeError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "page exploded", statusErr.Message)

	// probe, page 0, page 1 (failed), nothing after
	assert.Equal(t, []uint64{0, 0, 1}, mock.searchedPages())
}

func TestGetPageInfo(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 25)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	request := client.NewSearchRequest(SubjectHost, nil)
	request.Size = 10
	request.Page = 2 // ignored, the probe always asks for page 0

	info, err := client.GetPageInfo(SubjectHost, request)
	require.NoError(t, err)

	assert.Equal(t, uint64(25), info.TotalElements)
	assert.Equal(t, uint64(3), info.TotalPages)
	assert.Equal(t, []uint64{0}, mock.searchedPages())
}

func TestGetPageInfoWithoutEnvelope(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 2)
	mock.noEnvelope = true
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	_, err := client.GetPageInfo(SubjectHost, client.NewSearchRequest(SubjectHost, nil))

	var malformed *MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestSearchRequestBody(t *testing.T) {
	var body map[string]interface{}
	var path, apiKey string
	server := startMock(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-api-key")
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		writeJSON(w, map[string]interface{}{"page": map[string]interface{}{"totalElements": 0, "totalPages": 0}})
	}))
	client := newTestClient(t, server.URL)

	request := SearchRequest{
		Filters:    []Filter{NewFilter("hostName", FilterLike, "web")},
		Projection: ProjectionDetail,
		Sort:       []SortField{{Field: "criticality", Direction: SortDescending}},
		Size:       50,
	}
	_, _, err := client.SearchPage(SubjectHost, request)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/client/7/host/search", path)
	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "detail", body["projection"])
	assert.Equal(t, float64(0), body["page"])
	assert.Equal(t, float64(50), body["size"])
	assert.Equal(t, []interface{}{map[string]interface{}{"field": "criticality", "direction": "DESC"}}, body["sort"])

	filters := body["filters"].([]interface{})
	require.Len(t, filters, 1)
	filter := filters[0].(map[string]interface{})
	assert.Equal(t, "hostName", filter["field"])
	assert.Equal(t, "LIKE", filter["operator"])
	assert.Equal(t, []interface{}{}, filter["implicitFilters"])
}

func TestSearchForClientOverridesDefault(t *testing.T) {
	var path string
	server := startMock(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, map[string]interface{}{"page": map[string]interface{}{"totalElements": 0, "totalPages": 0}})
	}))
	client := newTestClient(t, server.URL)

	_, err := client.ForClient(99).SearchAllFiltered(SubjectApplication, nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/client/99/application/search", path)
	assert.Equal(t, uint64(testClientID), client.GetDefaultClientID())
}

func TestSearchAllRejectsInvalidRequests(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")

	request := client.NewSearchRequest(SubjectHost, nil)
	request.Size = 0
	_, err := client.SearchAll(SubjectHost, request)
	assert.Error(t, err)

	request = client.NewSearchRequest(SubjectHost, []Filter{{Field: "id", Operator: "sometimes"}})
	_, err = client.SearchAll(SubjectHost, request)
	assert.ErrorContains(t, err, "invalid operator")
}

func TestGetXRecords(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 10)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	request := client.NewSearchRequest(SubjectHost, nil)
	request.Size = 3

	total, records, err := client.GetXRecords(SubjectHost, request, 5)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), total)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, recordIDs(t, records))
	assert.Equal(t, []uint64{0, 1}, mock.searchedPages())
}

func TestGetXRecordsZeroCount(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 10)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	total, records, err := client.GetXRecords(SubjectHost, client.NewSearchRequest(SubjectHost, nil), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, mock.searchedPages())
}

func TestSearchAllPassesThroughOperatorsWithoutConstant(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 2)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	request := client.NewSearchRequest(SubjectHost, []Filter{NewFilter("hostName", "NOT_EMPTY", "")})
	records, err := client.SearchAll(SubjectHost, request)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NotEmpty(t, mock.searches)
	for _, s := range mock.searches {
		require.Len(t, s.Filters, 1)
		assert.Equal(t, FilterOperator("NOT_EMPTY"), s.Filters[0].Operator)
	}
}

func TestParseSearchPageEmbeddedKey(t *testing.T) {
	info, records, err := parseSearchPage(SubjectHost, []byte(`{"page":{"totalElements":1,"totalPages":1},"_embedded":{"somethingElse":[{"id":4}]}}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.TotalElements)
	assert.Equal(t, []int{4}, recordIDs(t, records))

	_, records, err = parseSearchPage(SubjectHost, []byte(`{"page":{"totalElements":0,"totalPages":0}}`))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, _, err = parseSearchPage(SubjectHost, []byte(`not json`))
	var malformed *MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestGetAllHostsFiltered(t *testing.T) {
	mock := newMockPlatform(t, SubjectHost, 3)
	server := startMock(t, mock)
	client := newTestClient(t, server.URL)

	hosts, err := client.GetAllHostsFiltered([]Filter{NewFilter("criticality", FilterGreater, "2")})
	require.NoError(t, err)

	require.Len(t, hosts, 3)
	assert.Equal(t, "host-2", hosts[1].HostName)
	assert.Equal(t, uint64(3), hosts[2].ID)
}
