package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/skewlab/overlay-backtest/pkg/errors"
)

// WriteCSV writes the consolidated equity table as a wide CSV: one date
// column plus one equity column per strategy.
func (c ConsolidatedEquity) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create consolidated CSV", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"date"}, c.Strategies...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))

	for i, date := range c.Dates {
		record[0] = date.Format("2006-01-02")

		for j, name := range c.Strategies {
			record[j+1] = strconv.FormatFloat(c.Equity[name][i], 'f', 2, 64)
		}

		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
