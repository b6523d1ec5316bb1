package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/wonny/instflow/internal/contracts"
)

// ErrSourceMissing is returned when a market's input directory does not exist
var ErrSourceMissing = errors.New("source directory missing")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// dayFile is one dated CSV file of a source directory
type dayFile struct {
	Date time.Time
	Path string
}

// listDayFiles returns the dated CSV files of dir, most recent first, and the
// number of files dropped because a later file carries the same date.
// File names must be YYYY-MM-DD.csv or YYYYMMDD.csv; anything else is ignored.
// 같은 날짜가 두 번 나오면 파일명 순서상 마지막 파일만 사용
func listDayFiles(dir string) ([]dayFile, int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, fmt.Errorf("%s: %w", dir, ErrSourceMissing)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	byDate := make(map[time.Time]dayFile)
	dropped := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		date, ok := parseFileDate(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if !ok {
			continue
		}
		if _, exists := byDate[date]; exists {
			dropped++
		}
		byDate[date] = dayFile{Date: date, Path: filepath.Join(dir, e.Name())}
	}

	files := make([]dayFile, 0, len(byDate))
	for _, f := range byDate {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Date.After(files[j].Date) })
	return files, dropped, nil
}

func parseFileDate(base string) (time.Time, bool) {
	for _, layout := range []string{contracts.DateLayout, "20060102"} {
		if t, err := time.Parse(layout, base); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decode returns data as UTF-8. UTF-8 (with or without BOM) is kept as is,
// anything else is read as cp950/Big5 as published by the exchanges.
func decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	out, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode cp950: %w", err)
	}
	return out, nil
}

// ReadCSV reads a whole CSV file with encoding detection.
// Rows may have different widths; title and footer lines come back as short rows.
func ReadCSV(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
