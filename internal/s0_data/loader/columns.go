package loader

import (
	"errors"
	"strings"
)

// ErrHeaderNotFound is returned when no row carries the security code column
var ErrHeaderNotFound = errors.New("header row with 證券代號 not found")

// column aliases, first match wins
var (
	colCode    = []string{"證券代號", "代號", "股票代號"}
	colName    = []string{"證券名稱", "名稱", "股票名稱"}
	colSector  = []string{"產業別", "產業"}
	colNet     = []string{"三大法人買賣超股數", "三大法人買賣超股數合計", "三大法人買賣超"}
	colForeign = []string{"外陸資買賣超股數(不含外資自營商)", "外資及陸資(不含外資自營商)-買賣超股數", "外資買賣超股數"}
	colTrust   = []string{"投信買賣超股數", "投信-買賣超股數"}
	colDealer  = []string{"自營商買賣超股數", "自營商-買賣超股數"}

	colVolume   = []string{"成交股數"}
	colTrades   = []string{"成交筆數"}
	colTurnover = []string{"成交金額"}
	colOpen     = []string{"開盤價"}
	colHigh     = []string{"最高價"}
	colLow      = []string{"最低價"}
	colClose    = []string{"收盤價"}
	colSign     = []string{"漲跌(+/-)"}
	colChange   = []string{"漲跌價差", "漲跌"}
	colPE       = []string{"本益比"}
)

// columnMap maps header names to column indexes
type columnMap map[string]int

// findHeader locates the first row that carries a code column, skipping title lines
func findHeader(rows [][]string) (int, columnMap, error) {
	for i, row := range rows {
		cm := make(columnMap, len(row))
		for j, cell := range row {
			name := strings.TrimSpace(strings.Trim(cell, "\ufeff\""))
			if _, seen := cm[name]; !seen && name != "" {
				cm[name] = j
			}
		}
		if _, ok := cm.index(colCode); ok {
			return i, cm, nil
		}
	}
	return 0, nil, ErrHeaderNotFound
}

// index returns the column of the first alias present
func (cm columnMap) index(aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := cm[a]; ok {
			return i, true
		}
	}
	return -1, false
}

// cell returns the cell under aliases, "" when the column or the cell is absent
func (cm columnMap) cell(row []string, aliases []string) (string, bool) {
	i, ok := cm.index(aliases)
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}
