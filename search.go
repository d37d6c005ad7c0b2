package RSClientGo

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Paginated search, shared by every subject
// POST /client/{clientId}/{subject}/search with {filters, projection, sort, page, size}

// returns a search request for page 0 with the subject's default page size and id ascending sort
func (c RSClient) NewSearchRequest(subject Subject, filters []Filter) SearchRequest {
	return SearchRequest{
		Filters:    filters,
		Projection: ProjectionBasic,
		Sort:       []SortField{{Field: "id", Direction: SortAscending}},
		Page:       0,
		Size:       c.pagination.ForSubject(subject),
	}
}

// returns one page of records for the request (request.Page, request.Size)
// along with the page envelope reported by the server
func (c RSClient) SearchPage(subject Subject, request SearchRequest) (PageInfo, []json.RawMessage, error) {
	return c.searchPage(c.clientID, subject, request)
}

func (c RSClient) searchPage(clientID uint64, subject Subject, request SearchRequest) (PageInfo, []json.RawMessage, error) {
	request.Filters = normalizeFilters(request.Filters)
	if request.Sort == nil {
		request.Sort = []SortField{}
	}
	if request.Projection == "" {
		request.Projection = ProjectionBasic
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return PageInfo{}, nil, err
	}

	data, err := c.sendClientRequest(clientID, http.MethodPost, fmt.Sprintf("/%v/search", subject.Name), jsonBody, nil)
	if err != nil {
		c.logger.Tracef("Error while fetching %v page %d: %s", subject, request.Page, err)
		return PageInfo{}, nil, err
	}

	rsSearchPagesTotal.WithLabelValues(subject.Name).Inc()
	return parseSearchPage(subject, data)
}

// Resolves the total number of records and pages for a search without keeping any records
// Always issues exactly one request for page 0
func (c RSClient) GetPageInfo(subject Subject, request SearchRequest) (PageInfo, error) {
	return c.getPageInfo(c.clientID, subject, request)
}

func (c RSClient) getPageInfo(clientID uint64, subject Subject, request SearchRequest) (PageInfo, error) {
	c.logger.Debugf("Get page info for %v with %d filters and page size %d", subject, len(request.Filters), request.Size)
	request.Page = 0
	info, _, err := c.searchPage(clientID, subject, request)
	return info, err
}

// returns the number of records matching the filters
func (c RSClient) GetCountFiltered(subject Subject, filters []Filter) (uint64, error) {
	info, err := c.GetPageInfo(subject, c.NewSearchRequest(subject, filters))
	return info.TotalElements, err
}

// gets all of the records matching the request, in server order
// pages are fetched one at a time from 0 to TotalPages-1 after a separate page-info request
// if any page fails the records collected so far are discarded and the error is returned
func (c RSClient) SearchAll(subject Subject, request SearchRequest) ([]json.RawMessage, error) {
	return c.searchAll(c.clientID, subject, request)
}

func (c RSClient) searchAll(clientID uint64, subject Subject, request SearchRequest) ([]json.RawMessage, error) {
	if request.Size == 0 {
		return nil, fmt.Errorf("search for %v requires a page size greater than 0", subject)
	}
	if err := ValidateFilters(request.Filters); err != nil {
		return nil, fmt.Errorf("invalid search for %v: %w", subject, err)
	}
	c.logUnknownOperators(request.Filters)

	info, err := c.getPageInfo(clientID, subject, request)
	if err != nil {
		return nil, fmt.Errorf("failed to get page info for %v: %w", subject, err)
	}
	c.logger.Debugf("Search %v: %d records in %d pages of %d", subject, info.TotalElements, info.TotalPages, request.Size)

	records := make([]json.RawMessage, 0, capacityHint(info.TotalElements))

	request.Page = 0
	for request.Page < info.TotalPages {
		_, page, err := c.searchPage(clientID, subject, request)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %v page %d of %d: %w", subject, request.Page, info.TotalPages, err)
		}
		records = append(records, page...)
		request.Bump()
	}

	if uint64(len(records)) != info.TotalElements {
		c.logger.Warnf("Search %v returned %d records but the server reported %d, the data may have changed during the search", subject, len(records), info.TotalElements)
	}

	return records, nil
}

// gets all of the records matching the filters with the default request settings
func (c RSClient) SearchAllFiltered(subject Subject, filters []Filter) ([]json.RawMessage, error) {
	return c.SearchAll(subject, c.NewSearchRequest(subject, filters))
}

// will return up to count records matching the request, starting from request.Page
// stops fetching once count records are collected or the last page is reached
// a count of 0 returns no records and a total of 0 without contacting the platform
func (c RSClient) GetXRecords(subject Subject, request SearchRequest, count uint64) (uint64, []json.RawMessage, error) {
	if request.Size == 0 {
		return 0, nil, fmt.Errorf("search for %v requires a page size greater than 0", subject)
	}
	if count == 0 {
		return 0, []json.RawMessage{}, nil
	}

	info, records, err := c.searchPage(c.clientID, subject, request)
	if err != nil {
		return 0, nil, err
	}

	for uint64(len(records)) < count && request.Page+1 < info.TotalPages {
		request.Bump()
		var page []json.RawMessage
		_, page, err = c.searchPage(c.clientID, subject, request)
		if err != nil {
			return info.TotalElements, nil, err
		}
		records = append(records, page...)
	}

	if uint64(len(records)) > count {
		records = records[:count]
	}
	return info.TotalElements, records, nil
}

func parseSearchPage(subject Subject, data []byte) (PageInfo, []json.RawMessage, error) {
	var page SearchPage
	if err := json.Unmarshal(data, &page); err != nil {
		return PageInfo{}, nil, &MalformedResponseError{What: fmt.Sprintf("%v search response", subject), Err: err}
	}
	if page.Page == nil {
		return PageInfo{}, nil, &MalformedResponseError{What: fmt.Sprintf("%v search response has no page envelope", subject)}
	}

	// an empty result set may omit _embedded entirely
	raw, ok := page.Embedded[subject.Embedded]
	if !ok {
		if len(page.Embedded) != 1 {
			return *page.Page, []json.RawMessage{}, nil
		}
		for _, only := range page.Embedded {
			raw = only
		}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return PageInfo{}, nil, &MalformedResponseError{What: fmt.Sprintf("%v search response records", subject), Err: err}
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return *page.Page, records, nil
}

// records are preallocated up to a limit, the server count is not trusted for large results
func capacityHint(total uint64) int {
	if total > 10000 {
		return 10000
	}
	return int(total)
}
