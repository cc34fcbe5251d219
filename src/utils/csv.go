package utils

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyCSV is returned when no header line exists at the requested offset.
var ErrEmptyCSV = errors.New("csv has no header at the requested offset")

// ReadCSVFromOffset skips headerRow non-blank lines of preamble, reads the next line as the header and returns the
// header followed by every data row padded or truncated to the header width. Blank lines are ignored.
func ReadCSVFromOffset(r io.Reader, headerRow int) ([][]string, error) {
	br := bufio.NewReader(r)
	for skipped := 0; skipped < headerRow; {
		line, err := br.ReadString('\n')
		if !isBlankLine(line) {
			skipped++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptyCSV
			}
			return nil, fmt.Errorf("failed to skip preamble: %v", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCSV
		}
		return nil, fmt.Errorf("failed to read the header: %v", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := [][]string{header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read the file: %v", err)
		}
		if isBlank(row) {
			continue
		}
		rows = append(rows, fitWidth(row, len(header)))
	}
	return rows, nil
}

func fitWidth(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isBlankLine is true for lines holding only spaces, tabs and line endings. Other whitespace such as a
// non-breaking space makes the line count.
func isBlankLine(line string) bool {
	return strings.Trim(line, " \t\r\n") == ""
}
