package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
)

// readHistory parses date,quantity rows. A leading header row is skipped.
func readHistory(r io.Reader) ([]forecast.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var history []forecast.SalesRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		day, err := time.Parse(dateLayout, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, row[0])
		}
		qty, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity %q", line, row[1])
		}
		if qty < 0 {
			return nil, fmt.Errorf("line %d: quantity must not be negative", line)
		}
		history = append(history, forecast.SalesRecord{Date: day, Quantity: qty})
	}
	return history, nil
}
