package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
)

// LoadPrices reads every daily quote file dated on or after since and keeps the
// requested codes. Unreadable files are skipped and counted.
func (s *CSVSource) LoadPrices(ctx context.Context, market contracts.Market, codes []string, since time.Time) (*contracts.PriceBatch, error) {
	p, err := s.profile(market)
	if err != nil {
		return nil, err
	}
	if p.PriceDir == "" {
		return &contracts.PriceBatch{Prices: map[string][]contracts.PricePoint{}}, nil
	}

	files, _, err := listDayFiles(filepath.Join(s.root, p.PriceDir))
	if err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[s0_data.NormalizeCode(c)] = struct{}{}
	}

	type parsedPrices struct {
		points map[string]contracts.PricePoint
		err    error
	}
	var selected []dayFile
	for _, f := range files {
		if !since.IsZero() && f.Date.Before(since) {
			continue
		}
		selected = append(selected, f)
	}

	parsed := make([]parsedPrices, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range selected {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points, err := readPriceFile(f, want)
			parsed[i] = parsedPrices{points: points, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &contracts.PriceBatch{Prices: make(map[string][]contracts.PricePoint, len(want))}
	for i, pp := range parsed {
		if pp.err != nil {
			batch.Skipped++
			s.logger.WithError(pp.err).WithFields(map[string]interface{}{
				"market": market,
				"file":   filepath.Base(selected[i].Path),
			}).Warn("price file skipped")
			continue
		}
		batch.Processed++
		for code, point := range pp.points {
			batch.Prices[code] = append(batch.Prices[code], point)
		}
	}

	return batch, nil
}

// readPriceFile parses one daily quote file, keeping only codes in want
func readPriceFile(f dayFile, want map[string]struct{}) (map[string]contracts.PricePoint, error) {
	rows, err := ReadCSV(f.Path)
	if err != nil {
		return nil, err
	}

	h, cm, err := findHeader(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(f.Path), err)
	}
	if _, ok := cm.index(colClose); !ok {
		return nil, fmt.Errorf("%s: close price column missing", filepath.Base(f.Path))
	}

	out := make(map[string]contracts.PricePoint)
	for _, row := range rows[h+1:] {
		raw, ok := cm.cell(row, colCode)
		if !ok {
			continue
		}
		code := s0_data.NormalizeCode(raw)
		if _, keep := want[code]; !keep {
			continue
		}

		point := contracts.PricePoint{
			Date:     f.Date,
			Trades:   intCell(cm, row, colTrades),
			Turnover: intCell(cm, row, colTurnover),
			Open:     floatCell(cm, row, colOpen),
			High:     floatCell(cm, row, colHigh),
			Low:      floatCell(cm, row, colLow),
			Close:    floatCell(cm, row, colClose),
			Change:   floatCell(cm, row, colChange),
		}
		point.VolumeLots = s0_data.SharesToLots(intCell(cm, row, colVolume))

		// 上市 파일은 부호가 별도 컬럼
		if sign, ok := cm.cell(row, colSign); ok && containsMinus(sign) && point.Change > 0 {
			point.Change = -point.Change
		}
		if raw, ok := cm.cell(row, colPE); ok {
			if pe, err := s0_data.ParseDecimal(raw); err == nil {
				point.PE = &pe
			}
		}
		out[code] = point
	}
	return out, nil
}

func intCell(cm columnMap, row []string, aliases []string) int64 {
	raw, ok := cm.cell(row, aliases)
	if !ok {
		return 0
	}
	v, err := s0_data.ParseVolume(raw)
	if err != nil {
		return 0
	}
	return v
}

func floatCell(cm columnMap, row []string, aliases []string) float64 {
	raw, ok := cm.cell(row, aliases)
	if !ok {
		return 0
	}
	v, err := s0_data.ParseDecimal(raw)
	if err != nil {
		return 0
	}
	return v
}

func containsMinus(s string) bool {
	for _, r := range s {
		if r == '-' || r == '－' {
			return true
		}
	}
	return false
}
