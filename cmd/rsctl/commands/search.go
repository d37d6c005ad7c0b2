package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	RSClientGo "github.com/risksense/RSClientGo"
)

// flag names
const (
	flagFilter     = "filter"
	flagPageSize   = "page-size"
	flagSort       = "sort"
	flagProjection = "projection"
	flagColumns    = "columns"
	flagOutput     = "output"
	flagLimit      = "limit"
	flagCountOnly  = "count"
)

type searchOptions struct {
	filters    []string
	pageSize   uint64
	sort       []string
	projection string
	columns    []string
	output     string
	limit      uint64
	countOnly  bool
}

func (a *app) searchCmd() *cobra.Command {
	opts := searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <subject>",
		Short: "Search all records of a subject matching the filters",
		Long: `Search retrieves every record of a subject matching the filters, page by page.

Filters are given as field:OPERATOR:value, eg: --filter severity:IN:High,Critical
Prefix the field with ! to negate the filter, or with | to OR it with the previous one.`,
		Example: `  rsctl search hostFinding --filter severity:IN:High,Critical --columns id,title,severity
  rsctl search host --filter hostName:LIKE:web --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := RSClientGo.SubjectByName(args[0])
			if err != nil {
				return err
			}
			if err := checkOutputFormat(opts.output); err != nil {
				return err
			}
			filters, err := parseFilters(opts.filters)
			if err != nil {
				return err
			}
			sortFields, err := parseSort(opts.sort)
			if err != nil {
				return err
			}

			client, err := a.connect(cmd)
			if err != nil {
				return err
			}
			sc := client.Subject(subject)

			if opts.countOnly {
				count, err := sc.Count(filters)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), count)
				return err
			}

			request := sc.NewSearchRequest(filters)
			if opts.pageSize != 0 {
				request.Size = opts.pageSize
			}
			if len(sortFields) > 0 {
				request.Sort = sortFields
			}
			if opts.projection != "" {
				request.Projection = RSClientGo.Projection(opts.projection)
			}

			var records []json.RawMessage
			if opts.limit > 0 {
				var total uint64
				total, records, err = client.GetXRecords(subject, request, opts.limit)
				if err == nil {
					a.logger.Infof("Retrieved %d of %d %v records", len(records), total, subject)
				}
			} else {
				records, err = sc.Search(request)
				if err == nil {
					a.logger.Infof("Retrieved %d %v records", len(records), subject)
				}
			}
			if err != nil {
				return err
			}

			if opts.output == outputJSON {
				return writeJSONRecords(cmd.OutOrStdout(), records)
			}
			return writeRecordTable(cmd.OutOrStdout(), records, opts.columns)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.filters, flagFilter, "f", nil, "Filter as field:OPERATOR:value, repeatable")
	flags.Uint64Var(&opts.pageSize, flagPageSize, 0, "Records per page (default from the client pagination settings)")
	flags.StringSliceVar(&opts.sort, flagSort, nil, "Sort as field[:ASC|DESC], repeatable (default id:ASC)")
	flags.StringVar(&opts.projection, flagProjection, "", "Projection: basic or detail")
	flags.StringSliceVarP(&opts.columns, flagColumns, "c", nil, "Columns shown in table output (default all)")
	flags.StringVarP(&opts.output, flagOutput, "o", outputTable, "Output format: table or json")
	flags.Uint64Var(&opts.limit, flagLimit, 0, "Stop after this many records (default all)")
	flags.BoolVar(&opts.countOnly, flagCountOnly, false, "Only print the number of matching records")
	return cmd
}

// parses field:OPERATOR:value filters, the value may itself contain colons
func parseFilters(specs []string) ([]RSClientGo.Filter, error) {
	filters := make([]RSClientGo.Filter, 0, len(specs))
	for _, spec := range specs {
		negate, or := false, false
		switch {
		case strings.HasPrefix(spec, "!"):
			negate = true
			spec = spec[1:]
		case strings.HasPrefix(spec, "|"):
			or = true
			spec = spec[1:]
		}

		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid filter '%v', expected field:OPERATOR:value", spec)
		}
		value := ""
		if len(parts) == 3 {
			value = parts[2]
		}

		filter := RSClientGo.NewFilter(parts[0], RSClientGo.FilterOperator(strings.ToUpper(parts[1])), value)
		if negate {
			filter = filter.Not()
		}
		if or {
			filter = filter.Or()
		}
		filters = append(filters, filter)
	}

	if err := RSClientGo.ValidateFilters(filters); err != nil {
		return nil, err
	}
	return filters, nil
}

func parseSort(specs []string) ([]RSClientGo.SortField, error) {
	fields := make([]RSClientGo.SortField, 0, len(specs))
	for _, spec := range specs {
		field, direction, found := strings.Cut(spec, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid sort '%v', expected field[:ASC|DESC]", spec)
		}
		sf := RSClientGo.SortField{Field: field, Direction: RSClientGo.SortAscending}
		if found {
			switch strings.ToUpper(direction) {
			case string(RSClientGo.SortAscending):
			case string(RSClientGo.SortDescending):
				sf.Direction = RSClientGo.SortDescending
			default:
				return nil, fmt.Errorf("invalid sort direction '%v' for %v", direction, field)
			}
		}
		fields = append(fields, sf)
	}
	return fields, nil
}
