package contracts

import "time"

// FlowComponents splits the institutional net volume by investor group, in lots.
// Day files that only publish the total leave it nil.
type FlowComponents struct {
	Foreign int64 `json:"foreign"` // 外陸資 (excl. foreign dealers)
	Trust   int64 `json:"trust"`   // 投信
	Dealer  int64 `json:"dealer"`  // 自營商
}

// SecurityRecord is one security's institutional net volume on one trading day
// ⭐ SSOT: Code는 s0_data.NormalizeCode()를 거친 값만 허용
type SecurityRecord struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Sector     string          `json:"sector,omitempty"`
	NetVolume  int64           `json:"net_volume"` // lots, positive = net buy
	Date       time.Time       `json:"date"`
	Components *FlowComponents `json:"components,omitempty"`
}

// DailySnapshot holds every record of one trading day. Codes are unique.
// Immutable once produced by ingest.
type DailySnapshot struct {
	Market  Market           `json:"market"`
	Date    time.Time        `json:"date"`
	Records []SecurityRecord `json:"records"`
}

// Len returns the number of records
func (s *DailySnapshot) Len() int {
	return len(s.Records)
}

// Lookup finds a record by canonical code
func (s *DailySnapshot) Lookup(code string) (SecurityRecord, bool) {
	for _, r := range s.Records {
		if r.Code == code {
			return r, true
		}
	}
	return SecurityRecord{}, false
}

// SnapshotBatch is what a snapshot source returns: snapshots ordered
// most-recent-first plus bookkeeping of what was dropped on the way in.
type SnapshotBatch struct {
	Snapshots     []DailySnapshot `json:"snapshots"`
	Processed     int             `json:"processed"`      // day files parsed
	Skipped       int             `json:"skipped"`        // day files missing or unreadable
	RawRecords    int             `json:"raw_records"`    // rows seen before validation
	Duplicates    int             `json:"duplicates"`     // repeated codes within a day (last write wins)
	DuplicateDays int             `json:"duplicate_days"` // day files dropped for a repeated date
	EmptyCodes    int             `json:"empty_codes"`    // rows whose code normalized to ""
}

// Latest returns the most recent snapshot
func (b *SnapshotBatch) Latest() (*DailySnapshot, bool) {
	if b == nil || len(b.Snapshots) == 0 {
		return nil, false
	}
	return &b.Snapshots[0], true
}
