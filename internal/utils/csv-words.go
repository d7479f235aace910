package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// CSVWordSource reads a word list from a CSV file. The first column is the
// word; an optional second column is its weight. Rows with a bad weight are
// skipped.
type CSVWordSource struct {
	Path   string
	Logger *zap.Logger
}

func NewCSVWordSource(path string, logger *zap.Logger) *CSVWordSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVWordSource{Path: path, Logger: logger}
}

func (s *CSVWordSource) LoadWords(ctx context.Context) ([]internal.Word, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open word file %s: %w", s.Path, err)
	}
	defer f.Close()

	return ReadWordsCSV(ctx, f, s.Logger)
}

// ReadWordsCSV parses word rows from r.
func ReadWordsCSV(ctx context.Context, r io.Reader, logger *zap.Logger) ([]internal.Word, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	var words []internal.Word
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse word csv: %w", err)
		}

		word := strings.ToUpper(strings.TrimSpace(record[0]))
		if word == "" {
			continue
		}

		count := 1
		if len(record) >= 2 && strings.TrimSpace(record[1]) != "" {
			count, err = strconv.Atoi(strings.TrimSpace(record[1]))
			if err != nil || count < 1 {
				logger.Warn("[ReadWordsCSV] skipping record with invalid count",
					zap.Int("line", line), zap.Strings("record", record))
				continue
			}
		}

		words = append(words, internal.Word{Word: word, Count: count})
	}

	return words, nil
}
