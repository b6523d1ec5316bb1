package s0_data

import (
	"time"

	"github.com/wonny/instflow/internal/contracts"
)

// RawRow is one source row before validation. Optional cells are explicit pointers
// so a missing column never turns into a silent zero.
type RawRow struct {
	Code      string
	Name      string
	Sector    string
	NetShares *int64 // 三大法人買賣超股數
	Foreign   *int64 // 外陸資買賣超股數(不含外資自營商)
	Trust     *int64 // 投信買賣超股數
	Dealer    *int64 // 自營商買賣超股數
}

// IngestResult is a validated snapshot plus what validation dropped
type IngestResult struct {
	Snapshot       contracts.DailySnapshot
	RawRecords     int
	Duplicates     int
	DuplicateCodes []string
	EmptyCodes     int
	Invalid        int // rows without a parseable net volume
}

// Ingest turns raw rows of one trading day into a DailySnapshot.
// Codes are normalized, shares become lots, and a code seen twice keeps its
// last value (reported in Duplicates). Rows whose code is empty are dropped.
// ⭐ SSOT: 원시 행 → DailySnapshot 변환은 여기서만
func Ingest(market contracts.Market, date time.Time, rows []RawRow) IngestResult {
	date = contracts.TradingDate(date)
	res := IngestResult{
		RawRecords: len(rows),
		Snapshot: contracts.DailySnapshot{
			Market:  market,
			Date:    date,
			Records: make([]contracts.SecurityRecord, 0, len(rows)),
		},
	}

	index := make(map[string]int, len(rows))
	for _, row := range rows {
		code := NormalizeCode(row.Code)
		if code == "" {
			res.EmptyCodes++
			continue
		}
		if row.NetShares == nil {
			res.Invalid++
			continue
		}

		rec := contracts.SecurityRecord{
			Code:      code,
			Name:      row.Name,
			Sector:    row.Sector,
			NetVolume: SharesToLots(*row.NetShares),
			Date:      date,
		}
		if row.Foreign != nil && row.Trust != nil && row.Dealer != nil {
			rec.Components = &contracts.FlowComponents{
				Foreign: SharesToLots(*row.Foreign),
				Trust:   SharesToLots(*row.Trust),
				Dealer:  SharesToLots(*row.Dealer),
			}
		}

		if i, dup := index[code]; dup {
			res.Duplicates++
			res.DuplicateCodes = append(res.DuplicateCodes, code)
			res.Snapshot.Records[i] = rec
			continue
		}
		index[code] = len(res.Snapshot.Records)
		res.Snapshot.Records = append(res.Snapshot.Records, rec)
	}

	return res
}
