package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/instflow/internal/contracts"
)

var historyHeader = []string{
	"date", "code", "name",
	"net_lots", "foreign_lots", "trust_lots", "dealer_lots",
	"volume_lots", "trades", "turnover",
	"open", "high", "low", "close", "change", "pe",
}

// WriteHistoryCSV writes one merged history, one row per date. Missing sides are empty cells.
func WriteHistoryCSV(w io.Writer, h contracts.MergedHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}

	for _, rec := range h.Records {
		row := make([]string, 0, len(historyHeader))
		row = append(row, contracts.DateKey(rec.Date), h.Code, h.Name)

		if rec.NetVolume != nil {
			row = append(row, strconv.FormatInt(*rec.NetVolume, 10))
		} else {
			row = append(row, "")
		}
		if c := rec.Components; c != nil {
			row = append(row, itoa(c.Foreign), itoa(c.Trust), itoa(c.Dealer))
		} else {
			row = append(row, "", "", "")
		}

		if p := rec.Price; p != nil {
			pe := ""
			if p.PE != nil {
				pe = ftoa(*p.PE)
			}
			row = append(row,
				itoa(p.VolumeLots), itoa(p.Trades), itoa(p.Turnover),
				ftoa(p.Open), ftoa(p.High), ftoa(p.Low), ftoa(p.Close), ftoa(p.Change), pe,
			)
		} else {
			row = append(row, "", "", "", "", "", "", "", "", "")
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportHistories writes <dir>/<market>_<code>.csv per history and returns the paths
func ExportHistories(dir string, market contracts.Market, histories []contracts.MergedHistory) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	paths := make([]string, 0, len(histories))
	for _, h := range histories {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", market, h.Code))
		if err := writeHistoryFile(path, h); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeHistoryFile(path string, h contracts.MergedHistory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteHistoryCSV(f, h); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
