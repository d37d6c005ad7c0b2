package RSClientGo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodes raw search records into T, eg: DecodeRecords[Host](records)
func DecodeRecords[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for id, r := range records {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", id, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// myexport and myexport.zip both extract into myexport/
func exportBaseName(fileName string) string {
	return strings.TrimSuffix(fileName, ".zip")
}
