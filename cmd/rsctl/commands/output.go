package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// output formats
const (
	outputTable = "table"
	outputJSON  = "json"
)

func checkOutputFormat(format string) error {
	if format != outputTable && format != outputJSON {
		return fmt.Errorf("unsupported output format '%v', use %v or %v", format, outputTable, outputJSON)
	}
	return nil
}

// writes records as a JSON array, one record per line
func writeJSONRecords(w io.Writer, records []json.RawMessage) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for id, r := range records {
		sep := ",\n"
		if id == 0 {
			sep = "\n"
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, r); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%v  %s", sep, buf.Bytes()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n]\n")
	return err
}

// renders records as a table of the given columns
// without columns, every top-level key of the first record is shown, id first
func writeRecordTable(w io.Writer, records []json.RawMessage, columns []string) error {
	rows := make([]map[string]interface{}, len(records))
	for id, r := range records {
		decoder := json.NewDecoder(bytes.NewReader(r))
		decoder.UseNumber()
		if err := decoder.Decode(&rows[id]); err != nil {
			return fmt.Errorf("failed to decode record %d: %w", id, err)
		}
	}

	if len(columns) == 0 && len(rows) > 0 {
		columns = recordColumns(rows[0])
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	for _, row := range rows {
		line := make([]string, len(columns))
		for id, col := range columns {
			line[id] = cellValue(row[col])
		}
		table.Append(line)
	}
	table.Render()
	return nil
}

func writeTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func recordColumns(row map[string]interface{}) []string {
	columns := make([]string, 0, len(row))
	for key := range row {
		if key != "id" {
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	if _, ok := row["id"]; ok {
		columns = append([]string{"id"}, columns...)
	}
	return columns
}

func cellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
