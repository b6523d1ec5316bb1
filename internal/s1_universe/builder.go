package s1_universe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/internal/s0_data/loader"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// Config holds allow-list rules
type Config struct {
	FundKeyword    string   `yaml:"fund_keyword"`    // 산업별에 포함되면 ETF로 분류
	ExcludeSectors []string `yaml:"exclude_sectors"` // 제외 섹터
}

// DefaultConfig classifies "ETF" sectors as funds and excludes nothing
func DefaultConfig() Config {
	return Config{FundKeyword: "ETF"}
}

// Builder reads the per-market stock list CSV into a Universe
type Builder struct {
	root     string
	profiles []strategyconfig.MarketProfile
	config   Config
	logger   *logger.Logger
}

// NewBuilder creates a new Universe Builder rooted at FLOW_DATA_DIR
func NewBuilder(root string, profiles []strategyconfig.MarketProfile, config Config, log *logger.Logger) *Builder {
	return &Builder{
		root:     root,
		profiles: profiles,
		config:   config,
		logger:   log.Component("universe"),
	}
}

var _ contracts.UniverseSource = (*Builder)(nil)

// LoadUniverse builds the allow-list of a market.
// A market without a stock list, or whose list file is absent, gets an open
// universe where every non-empty code is eligible.
// ⭐ SSOT: S1 유니버스 생성
func (b *Builder) LoadUniverse(ctx context.Context, market contracts.Market) (*contracts.Universe, error) {
	cfg := strategyconfig.Config{Markets: b.profiles}
	p, ok := cfg.Market(market)
	if !ok {
		return nil, fmt.Errorf("no profile for market %s", market)
	}

	open := &contracts.Universe{Market: market, Date: contracts.TradingDate(time.Now())}
	if p.StockList == "" {
		return open, nil
	}

	path := filepath.Join(b.root, p.StockList)
	rows, err := loader.ReadCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		b.logger.WithField("path", path).Warn("stock list missing, every code is eligible")
		return open, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stock list: %w", err)
	}

	securities, excluded := ParseStockList(rows, b.config)
	b.logger.WithFields(map[string]interface{}{
		"market":   market,
		"eligible": len(securities),
		"excluded": excluded,
	}).Info("universe built")

	open.Securities = securities
	return open, nil
}

// ParseStockList turns stock list rows into allow-list entries.
// With a recognizable header (代號/名稱/產業別) columns are found by name;
// otherwise the layout is code, name, sector.
func ParseStockList(rows [][]string, cfg Config) (map[string]contracts.Security, int) {
	codeCol, nameCol, sectorCol := 0, 1, 2
	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && !isCodeLike(rows[0][0]) {
		start = 1
		for i, cell := range rows[0] {
			switch strings.TrimSpace(strings.Trim(cell, "\ufeff")) {
			case "代號", "證券代號", "股票代號":
				codeCol = i
			case "名稱", "證券名稱", "股票名稱":
				nameCol = i
			case "產業別", "產業":
				sectorCol = i
			}
		}
	}

	securities := make(map[string]contracts.Security)
	excluded := 0
	for _, row := range rows[start:] {
		code := s0_data.NormalizeCode(at(row, codeCol))
		if code == "" {
			continue
		}
		sector := at(row, sectorCol)
		if excludedSector(sector, cfg.ExcludeSectors) {
			excluded++
			continue
		}
		securities[code] = contracts.Security{
			Code:   code,
			Name:   at(row, nameCol),
			Sector: sector,
			Fund:   cfg.FundKeyword != "" && strings.Contains(strings.ToUpper(sector), strings.ToUpper(cfg.FundKeyword)),
		}
	}
	return securities, excluded
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isCodeLike(cell string) bool {
	code := s0_data.NormalizeCode(cell)
	if code == "" {
		return false
	}
	for _, r := range code {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func excludedSector(sector string, excluded []string) bool {
	for _, s := range excluded {
		if strings.EqualFold(strings.TrimSpace(s), sector) {
			return true
		}
	}
	return false
}
