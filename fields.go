package RSClientGo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Filterable fields of a subject, as listed by GET /client/{cid}/{subject}/filter

func (c RSClient) GetFilterFields(subject Subject) ([]FilterField, error) {
	return c.getFilterFields(c.clientID, subject)
}

func (c RSClient) getFilterFields(clientID uint64, subject Subject) ([]FilterField, error) {
	c.logger.Debugf("Getting filter fields for %v", subject)
	var fields []FilterField

	data, err := c.sendClientRequest(clientID, http.MethodGet, fmt.Sprintf("/%v/filter", subject.Name), nil, nil)
	if err != nil {
		c.logger.Tracef("Fetching filter fields for %v failed: %s", subject, err)
		return fields, err
	}

	if err = json.Unmarshal(data, &fields); err != nil {
		return fields, &MalformedResponseError{What: fmt.Sprintf("%v filter fields", subject), Err: err}
	}
	return fields, nil
}

// returns the filterable field with the given uid or display name
func (c RSClient) GetFilterFieldByName(subject Subject, name string) (FilterField, error) {
	fields, err := c.GetFilterFields(subject)
	if err != nil {
		return FilterField{}, err
	}
	for _, f := range fields {
		if f.UID == name || strings.EqualFold(f.DisplayName, name) {
			return f, nil
		}
	}
	return FilterField{}, fmt.Errorf("%v has no filter field %v", subject, name)
}

func (f FilterField) String() string {
	return fmt.Sprintf("%v (%v)", f.UID, f.DisplayName)
}
