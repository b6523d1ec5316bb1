package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// CSVSource reads institutional day files (one CSV per trading day) from disk
// ⭐ SSOT: 파일 기반 일별 스냅샷 공급
type CSVSource struct {
	root     string
	profiles []strategyconfig.MarketProfile
	workers  int
	logger   *logger.Logger
}

// NewCSVSource creates a source rooted at root (FLOW_DATA_DIR)
func NewCSVSource(root string, profiles []strategyconfig.MarketProfile, workers int, log *logger.Logger) *CSVSource {
	if workers < 1 {
		workers = 1
	}
	return &CSVSource{
		root:     root,
		profiles: profiles,
		workers:  workers,
		logger:   log.Component("loader"),
	}
}

var (
	_ contracts.SnapshotSource = (*CSVSource)(nil)
	_ contracts.PriceSource    = (*CSVSource)(nil)
)

func (s *CSVSource) profile(market contracts.Market) (strategyconfig.MarketProfile, error) {
	cfg := strategyconfig.Config{Markets: s.profiles}
	p, ok := cfg.Market(market)
	if !ok {
		return p, fmt.Errorf("no profile for market %s", market)
	}
	return p, nil
}

// parsedDay is the outcome of reading one day file
type parsedDay struct {
	file dayFile
	rows []s0_data.RawRow
	err  error
}

// LoadSnapshots reads the limit most recent day files of a market.
// Unreadable files are logged and counted as skipped; every date appears once.
func (s *CSVSource) LoadSnapshots(ctx context.Context, market contracts.Market, limit int) (*contracts.SnapshotBatch, error) {
	p, err := s.profile(market)
	if err != nil {
		return nil, err
	}

	files, dropped, err := listDayFiles(filepath.Join(s.root, p.FlowDir))
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.WithFields(map[string]interface{}{
			"market": market,
			"files":  dropped,
		}).Warn("day files with a repeated date, last file kept")
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	parsed := make([]parsedDay, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readFlowFile(f.Path)
			parsed[i] = parsedDay{file: f, rows: rows, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &contracts.SnapshotBatch{DuplicateDays: dropped}
	for _, d := range parsed {
		if d.err != nil {
			batch.Skipped++
			s.logger.WithError(d.err).WithFields(map[string]interface{}{
				"market": market,
				"file":   filepath.Base(d.file.Path),
			}).Warn("day file skipped")
			continue
		}

		res := s0_data.Ingest(market, d.file.Date, d.rows)
		batch.Processed++
		batch.RawRecords += res.RawRecords
		batch.Duplicates += res.Duplicates
		batch.EmptyCodes += res.EmptyCodes

		if res.Duplicates > 0 {
			s.logger.WithFields(map[string]interface{}{
				"market": market,
				"date":   contracts.DateKey(d.file.Date),
				"codes":  res.DuplicateCodes,
			}).Warn("duplicate codes in day file, last row kept")
		}
		batch.Snapshots = append(batch.Snapshots, res.Snapshot)
	}

	s.logger.WithFields(map[string]interface{}{
		"market":    market,
		"processed": batch.Processed,
		"skipped":   batch.Skipped,
		"records":   batch.RawRecords,
	}).Info("day files loaded")

	return batch, nil
}

// readFlowFile parses one institutional day file into raw rows
func readFlowFile(path string) ([]s0_data.RawRow, error) {
	rows, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	h, cm, err := findHeader(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if _, ok := cm.index(colNet); !ok {
		return nil, fmt.Errorf("%s: net volume column missing", filepath.Base(path))
	}

	out := make([]s0_data.RawRow, 0, len(rows)-h-1)
	for _, row := range rows[h+1:] {
		code, ok := cm.cell(row, colCode)
		if !ok || len(row) < 2 {
			continue // footer notes
		}
		name, _ := cm.cell(row, colName)
		out = append(out, s0_data.RawRow{
			Code:      code,
			Name:      name,
			NetShares: optionalVolume(cm, row, colNet),
			Foreign:   optionalVolume(cm, row, colForeign),
			Trust:     optionalVolume(cm, row, colTrust),
			Dealer:    optionalVolume(cm, row, colDealer),
		})
	}
	return out, nil
}

func optionalVolume(cm columnMap, row []string, aliases []string) *int64 {
	raw, ok := cm.cell(row, aliases)
	if !ok {
		return nil
	}
	v, err := s0_data.ParseVolume(raw)
	if err != nil {
		return nil
	}
	return &v
}
