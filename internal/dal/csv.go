package dal

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVBackend reads a CSV file as a single table block. The header row keeps
// its cells bold so style queries can tell it apart from data rows.
type CSVBackend struct{}

func (b *CSVBackend) ReadFile(path string) ([]RawBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	tbl := RawBlock{Kind: RawTable}
	for i, record := range records {
		var cells []RawBlock
		for _, field := range record {
			cells = append(cells, RawBlock{
				Kind: RawCell,
				Blocks: []RawBlock{{
					Kind: RawParagraph,
					Runs: []RawRun{{Text: field, Bold: i == 0}},
				}},
			})
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	return []RawBlock{tbl}, nil
}
