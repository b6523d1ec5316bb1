package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/instflow/internal/contracts"
)

// Sheet names, in workbook order
const (
	SheetAggregateBuy   = "aggregate buy"
	SheetAggregateSell  = "aggregate sell"
	SheetCrossListed    = "cross-listed"
	SheetDailyBuy       = "daily buy"
	SheetDailySell      = "daily sell"
	SheetFund           = "fund"
	SheetNewBuy         = "new buy"
	SheetNewSell        = "new sell"
	SheetObservableBuy  = "observable buy"
	SheetObservableSell = "observable sell"
)

// Sheets lists every sheet written by BuildWorkbook
var Sheets = []string{
	SheetAggregateBuy, SheetAggregateSell, SheetCrossListed,
	SheetDailyBuy, SheetDailySell, SheetFund,
	SheetNewBuy, SheetNewSell, SheetObservableBuy, SheetObservableSell,
}

// sheetWriter appends rows to one sheet
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) append(values ...interface{}) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(w.sheet, cell, &values)
}

// BuildWorkbook renders a report into an in-memory workbook
// ⭐ SSOT: 엑셀 리포트 레이아웃은 여기서만
func BuildWorkbook(r *contracts.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	writers := make(map[string]*sheetWriter, len(Sheets))
	for i, name := range Sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		writers[name] = &sheetWriter{f: f, sheet: name}
	}

	steps := []func() error{
		func() error { return writeLeaderboard(writers[SheetAggregateBuy], r.Aggregate.Buy) },
		func() error { return writeLeaderboard(writers[SheetAggregateSell], r.Aggregate.Sell) },
		func() error { return writeCrossListed(writers[SheetCrossListed], r.Aggregate.CrossListings) },
		func() error { return writeDaily(writers[SheetDailyBuy], r.Rankings, contracts.SideBuy) },
		func() error { return writeDaily(writers[SheetDailySell], r.Rankings, contracts.SideSell) },
		func() error { return writeFund(writers[SheetFund], r) },
		func() error { return writeNew(writers[SheetNewBuy], r, contracts.SideBuy) },
		func() error { return writeNew(writers[SheetNewSell], r, contracts.SideSell) },
		func() error {
			return writeObservable(writers[SheetObservableBuy], &r.Classification, contracts.SideBuy)
		},
		func() error {
			return writeObservable(writers[SheetObservableSell], &r.Classification, contracts.SideSell)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write workbook: %w", err)
		}
	}

	return f, nil
}

// WriteWorkbook renders a report and saves it to path
func WriteWorkbook(r *contracts.Report, path string) error {
	f, err := BuildWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeLeaderboard(w *sheetWriter, board contracts.Leaderboard) error {
	if err := w.append("Rank", "Code", "Name", "Sector", "Sum (lots)", "Appearances", "Cross-listed"); err != nil {
		return err
	}
	for i, e := range board.Entries {
		flag := ""
		if e.CrossListed {
			flag = "⚠"
		}
		if err := w.append(i+1, e.Code, e.Name, e.Sector, e.Sum, e.Appearances, flag); err != nil {
			return err
		}
	}
	return nil
}

func writeCrossListed(w *sheetWriter, listings []contracts.CrossListing) error {
	header := []interface{}{"Code", "Name", "Sector", "Buy days", "Sell days", "Buy sum", "Sell sum", "Net sum"}
	if len(listings) > 0 {
		for _, d := range listings[0].Timeline {
			header = append(header, d.Date.Format("01-02"))
		}
	}
	if err := w.append(header...); err != nil {
		return err
	}

	for _, cl := range listings {
		row := []interface{}{
			cl.Code, cl.Name, cl.Sector,
			strings.Join(cl.BuyDays, ","), strings.Join(cl.SellDays, ","),
			cl.BuySum, cl.SellSum, cl.NetSum,
		}
		for _, d := range cl.Timeline {
			row = append(row, statusMark(d.Direction))
		}
		if err := w.append(row...); err != nil {
			return err
		}
	}
	return nil
}

func statusMark(d contracts.Direction) string {
	switch d {
	case contracts.DirectionBuy:
		return "買"
	case contracts.DirectionSell:
		return "賣"
	default:
		return "-"
	}
}

func writeDaily(w *sheetWriter, rankings []contracts.RankingResult, side contracts.Side) error {
	if err := w.append("Date", "Rank", "Code", "Name", "Sector", "Net (lots)"); err != nil {
		return err
	}
	for i := range rankings {
		for _, e := range rankings[i].Top(side) {
			if err := w.append(contracts.DateKey(rankings[i].Date), e.Rank, e.Code, e.Name, e.Sector, e.NetVolume); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFund(w *sheetWriter, r *contracts.Report) error {
	if err := w.append("Date", "Side", "Rank", "Code", "Name", "Net (lots)"); err != nil {
		return err
	}
	latest, ok := r.Latest()
	if !ok {
		return nil
	}
	for _, side := range []contracts.Side{contracts.SideBuy, contracts.SideSell} {
		entries := latest.FundBuy
		if side == contracts.SideSell {
			entries = latest.FundSell
		}
		for _, e := range entries {
			if err := w.append(contracts.DateKey(latest.Date), string(side), e.Rank, e.Code, e.Name, e.NetVolume); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeNew(w *sheetWriter, r *contracts.Report, side contracts.Side) error {
	if err := w.append("Code", "Name", "Net (lots)"); err != nil {
		return err
	}
	codes := r.Classification.NewBuy
	if side == contracts.SideSell {
		codes = r.Classification.NewSell
	}

	lookup := make(map[string]contracts.RankedEntry)
	if latest, ok := r.Latest(); ok {
		for _, e := range latest.Tracked(side) {
			lookup[e.Code] = e
		}
	}
	for _, code := range codes {
		e := lookup[code]
		if err := w.append(code, e.Name, e.NetVolume); err != nil {
			return err
		}
	}
	return nil
}

func writeObservable(w *sheetWriter, c *contracts.Classification, side contracts.Side) error {
	if err := w.append("Code", "Name", "Net (lots)", "Reasons", "Z-score", "Mean", "Std", "Persistent days"); err != nil {
		return err
	}
	for _, o := range c.Observables(side) {
		row := []interface{}{o.Code, o.Name, o.NetVolume, o.ReasonText()}
		if o.HasStats {
			row = append(row, round2(o.ZScore), round2(o.Mean), round2(o.Std))
		} else {
			row = append(row, "", "", "")
		}
		row = append(row, o.PersistentDays)
		if err := w.append(row...); err != nil {
			return err
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
