package contracts

import (
	"sort"
	"time"
)

// Security is one entry of the allow-list
type Security struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
	Fund   bool   `json:"fund"` // ETF
}

// Universe is the allow-list of eligible securities with sector and fund lookup
// ⭐ SSOT: 종목 적격성 판단은 Eligible()만 사용
type Universe struct {
	Market     Market              `json:"market"`
	Date       time.Time           `json:"date"`
	Securities map[string]Security `json:"securities"`
}

// Eligible reports whether code may appear in any ranking.
// A nil universe admits every non-empty code; the empty code is never eligible.
func (u *Universe) Eligible(code string) bool {
	if code == "" {
		return false
	}
	if u == nil || u.Securities == nil {
		return true
	}
	_, ok := u.Securities[code]
	return ok
}

// IsFund reports whether code is in the fund (ETF) set
func (u *Universe) IsFund(code string) bool {
	if u == nil {
		return false
	}
	return u.Securities[code].Fund
}

// Sector returns the sector of code, "" when unknown
func (u *Universe) Sector(code string) string {
	if u == nil {
		return ""
	}
	return u.Securities[code].Sector
}

// Name returns the listed name of code, "" when unknown
func (u *Universe) Name(code string) string {
	if u == nil {
		return ""
	}
	return u.Securities[code].Name
}

// Count returns the number of allow-listed securities
func (u *Universe) Count() int {
	if u == nil {
		return 0
	}
	return len(u.Securities)
}

// Codes returns the allow-listed codes in ascending order
func (u *Universe) Codes() []string {
	if u == nil {
		return nil
	}
	codes := make([]string, 0, len(u.Securities))
	for code := range u.Securities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
