package s0_data

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMissingValue is returned for blank or placeholder numeric cells ("", "--", "X")
var ErrMissingValue = errors.New("missing value")

// codeCleaner removes spreadsheet quoting around security codes: ="0050", '0050, "0050"
var codeCleaner = strings.NewReplacer(`="`, "", `"`, "", `'`, "", `\`, "")

// NormalizeCode returns the canonical security code.
// Quoting artifacts and surrounding whitespace are removed; all-digit codes shorter
// than 4 are left-padded with zeros. The empty string means "no code" and is never
// eligible anywhere. Applying it twice gives the same result.
// ⭐ SSOT: 종목코드 정규화는 이 함수만 사용
func NormalizeCode(raw string) string {
	s := strings.TrimSpace(codeCleaner.Replace(strings.TrimSpace(raw)))
	if s == "" {
		return ""
	}
	if len(s) < 4 && isDigits(s) {
		s = strings.Repeat("0", 4-len(s)) + s
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// SharesToLots converts shares to lots of 1000, truncating toward zero.
// |shares| < 1000 yields 0.
func SharesToLots(shares int64) int64 {
	return shares / 1000
}

// ParseVolume parses an integer cell such as "1,234,000", "+500" or "-12,000".
// Decimal cells are truncated toward zero.
func ParseVolume(raw string) (int64, error) {
	s := cleanNumber(raw)
	if s == "" {
		return 0, ErrMissingValue
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// ParseDecimal parses a price-like cell. Placeholders yield ErrMissingValue.
func ParseDecimal(raw string) (float64, error) {
	s := cleanNumber(raw)
	if s == "" {
		return 0, ErrMissingValue
	}
	return strconv.ParseFloat(s, 64)
}

func cleanNumber(raw string) string {
	s := strings.TrimSpace(codeCleaner.Replace(raw))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	switch s {
	case "", "--", "---", "X", "x", "N/A":
		return ""
	}
	return s
}
