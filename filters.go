package RSClientGo

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	FilterExact    FilterOperator = "EXACT"
	FilterIn       FilterOperator = "IN"
	FilterLike     FilterOperator = "LIKE"
	FilterWildcard FilterOperator = "WILDCARD"
	FilterRange    FilterOperator = "RANGE"
	FilterPresent  FilterOperator = "PRESENT"
	FilterTrue     FilterOperator = "TRUE"
	FilterGreater  FilterOperator = "GREATER"
	FilterLess     FilterOperator = "LESS"
	FilterCompare  FilterOperator = "COMPARE"
)

var knownFilterOperators = []FilterOperator{
	FilterExact, FilterIn, FilterLike, FilterWildcard, FilterRange,
	FilterPresent, FilterTrue, FilterGreater, FilterLess, FilterCompare,
}

const (
	ProjectionBasic  Projection = "basic"
	ProjectionDetail Projection = "detail"
)

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

func NewFilter(field string, operator FilterOperator, value string) Filter {
	return Filter{
		Field:    field,
		Operator: operator,
		Value:    value,
	}
}

// convenience for the IN operator, values are comma-joined as the platform expects
func NewInFilter(field string, values ...string) Filter {
	return NewFilter(field, FilterIn, strings.Join(values, ","))
}

// returns a copy of the filter that excludes matches instead of including them
func (f Filter) Not() Filter {
	f.Exclusive = !f.Exclusive
	return f
}

// returns a copy of the filter that is OR-ed with the filter before it
func (f Filter) Or() Filter {
	f.OrWithPrevious = true
	return f
}

func (f Filter) String() string {
	not := ""
	if f.Exclusive {
		not = "NOT "
	}
	return fmt.Sprintf("%v%v %v '%v'", not, f.Field, f.Operator, f.Value)
}

// operators this package has constants for, the platform may accept others
func (o FilterOperator) IsKnown() bool {
	return slices.Contains(knownFilterOperators, o)
}

// operators are sent as upper-case identifiers such as EXACT or NOT_EMPTY
func (o FilterOperator) wellFormed() bool {
	if o == "" {
		return false
	}
	for _, r := range o {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

// checks the structure of the filters before they are sent
// operators must be upper-case identifiers, ones without a constant here are passed through for the platform to judge
func ValidateFilters(filters []Filter) error {
	for id, f := range filters {
		if f.Field == "" {
			return fmt.Errorf("filter %d has no field", id)
		}
		if !f.Operator.wellFormed() {
			return fmt.Errorf("filter %d (%v) has invalid operator '%v'", id, f.Field, f.Operator)
		}
		if id == 0 && f.OrWithPrevious {
			return fmt.Errorf("filter %d (%v) is OR-ed with a previous filter but is the first filter", id, f.Field)
		}
		if err := ValidateFilters(f.ImplicitFilters); err != nil {
			return fmt.Errorf("filter %d (%v) implicit filters: %w", id, f.Field, err)
		}
	}
	return nil
}

func (c RSClient) logUnknownOperators(filters []Filter) {
	for _, f := range filters {
		if !f.Operator.IsKnown() {
			c.logger.Debugf("Filter on %v uses operator '%v' which has no constant in this client, passing it through", f.Field, f.Operator)
		}
		c.logUnknownOperators(f.ImplicitFilters)
	}
}

// copies the filters so that every list is non-nil and marshals as [] rather than null
// the caller's slices are never modified or shared with the request body
func normalizeFilters(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		f.ImplicitFilters = normalizeFilters(f.ImplicitFilters)
		out = append(out, f)
	}
	return out
}
