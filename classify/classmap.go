package classify

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadClassMap reads a class map CSV of the form index,mid,display_name
// (header row included) and returns the display names indexed by class id.
func LoadClassMap(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class map: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse class map: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("class map is empty")
	}

	// Skip the header row if present
	start := 0
	if strings.EqualFold(records[0][0], "index") {
		start = 1
	}

	labels := make([]string, 0, len(records)-start)
	for i, record := range records[start:] {
		if len(record) < 3 {
			return nil, fmt.Errorf("class map row %d has %d columns, want 3", i+start, len(record))
		}
		labels = append(labels, record[2])
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("class map has no label rows")
	}
	return labels, nil
}
