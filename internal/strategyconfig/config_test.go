package strategyconfig

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/inst_flow_v1.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "inst_flow_v1", cfg.Meta.StrategyID)
	assert.Equal(t, 2.5, cfg.Statistics.SigmaThreshold)
	assert.Len(t, cfg.Markets, 2)

	// 파일과 기본값은 같은 파라미터
	fileHash, err := Hash(cfg)
	require.NoError(t, err)
	defHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, defHash, fileHash)
	assert.Len(t, fileHash, 64)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 100, cfg.Ranking.BuyCount)
	assert.Equal(t, 50, cfg.Ranking.SellCount)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
	assert.Empty(t, Warn(Default()))
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("meta:\n  strategy_id: x\n  stratgy: typo\n"))
	assert.Error(t, err)
}

func TestValidateAggregate(t *testing.T) {
	base := Default().Aggregate

	tests := []struct {
		name        string
		mutate      func(a *Aggregate)
		wantErr     bool
		conflicting bool
	}{
		{"default top_n", func(a *Aggregate) {}, false, false},
		{"threshold mode", func(a *Aggregate) { a.Mode = "threshold"; a.TopN = 0; a.Threshold = 10000 }, false, false},
		{"both set", func(a *Aggregate) { a.Threshold = 10000 }, true, true},
		{"threshold mode both set", func(a *Aggregate) { a.Mode = "threshold"; a.Threshold = 10000 }, true, true},
		{"threshold mode without threshold", func(a *Aggregate) { a.Mode = "threshold"; a.TopN = 0 }, true, false},
		{"mode missing", func(a *Aggregate) { a.Mode = "" }, true, false},
		{"bad scope", func(a *Aggregate) { a.Scope = "everything" }, true, false},
		{"zero days", func(a *Aggregate) { a.Days = 0 }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.mutate(&a)
			err := ValidateAggregate(a)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.conflicting, errors.Is(err, ErrConflictingSelection))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"unknown market", func(c *Config) { c.Markets[0].ID = "NYSE" }, "markets[0].id"},
		{"duplicate market", func(c *Config) { c.Markets[1].ID = "tse" }, "markets[1].id"},
		{"window below min", func(c *Config) { c.Statistics.WindowDays = 10 }, "statistics.window_days"},
		{"retain too short", func(c *Config) { c.History.RetainDays = 30 }, "history.retain_days"},
		{"persistent above lookback", func(c *Config) { c.Classification.PersistentMinDays = 5 }, "classification.persistent_min_days"},
		{"unknown pool", func(c *Config) { c.Classification.ObservablePool = "all" }, "classification.observable_pool"},
		{"bad since", func(c *Config) { c.Collector.Since = "2024/01/01" }, "collector.since"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHashChangesWithParameters(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)

	cfg := Default()
	cfg.Statistics.SigmaThreshold = 3
	b, err := Hash(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
