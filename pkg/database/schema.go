package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the flow schema. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS flow`,
	`CREATE SCHEMA IF NOT EXISTS audit`,
	`CREATE TABLE IF NOT EXISTS flow.daily_flow (
		market       TEXT        NOT NULL,
		trade_date   DATE        NOT NULL,
		stock_code   TEXT        NOT NULL,
		stock_name   TEXT        NOT NULL DEFAULT '',
		sector       TEXT        NOT NULL DEFAULT '',
		net_lots     BIGINT      NOT NULL,
		foreign_lots BIGINT,
		trust_lots   BIGINT,
		dealer_lots  BIGINT,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (market, trade_date, stock_code)
	)`,
	`CREATE TABLE IF NOT EXISTS flow.daily_prices (
		market      TEXT        NOT NULL,
		trade_date  DATE        NOT NULL,
		stock_code  TEXT        NOT NULL,
		volume_lots BIGINT,
		trades      BIGINT,
		turnover    BIGINT,
		open_price  DOUBLE PRECISION,
		high_price  DOUBLE PRECISION,
		low_price   DOUBLE PRECISION,
		close_price DOUBLE PRECISION,
		change      DOUBLE PRECISION,
		pe_ratio    DOUBLE PRECISION,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (market, trade_date, stock_code)
	)`,
	`CREATE TABLE IF NOT EXISTS flow.universe (
		market     TEXT        NOT NULL,
		stock_code TEXT        NOT NULL,
		stock_name TEXT        NOT NULL DEFAULT '',
		sector     TEXT        NOT NULL DEFAULT '',
		is_fund    BOOLEAN     NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (market, stock_code)
	)`,
	`CREATE TABLE IF NOT EXISTS flow.rankings (
		market     TEXT   NOT NULL,
		trade_date DATE   NOT NULL,
		list_name  TEXT   NOT NULL,
		rank       INT    NOT NULL,
		stock_code TEXT   NOT NULL,
		stock_name TEXT   NOT NULL DEFAULT '',
		net_lots   BIGINT NOT NULL,
		PRIMARY KEY (market, trade_date, list_name, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS flow.observations (
		market          TEXT             NOT NULL,
		trade_date      DATE             NOT NULL,
		side            TEXT             NOT NULL,
		stock_code      TEXT             NOT NULL,
		is_new          BOOLEAN          NOT NULL DEFAULT FALSE,
		reasons         TEXT             NOT NULL DEFAULT '',
		z_score         DOUBLE PRECISION,
		mean_lots       DOUBLE PRECISION,
		std_lots        DOUBLE PRECISION,
		persistent_days INT              NOT NULL DEFAULT 0,
		PRIMARY KEY (market, trade_date, side, stock_code)
	)`,
	`ALTER TABLE flow.observations ADD COLUMN IF NOT EXISTS persistent_days INT NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS flow.aggregates (
		market      TEXT        NOT NULL,
		as_of       DATE        NOT NULL,
		config_hash TEXT        NOT NULL,
		payload     JSONB       NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (market, as_of)
	)`,
	`CREATE TABLE IF NOT EXISTS audit.flow_run_quality (
		run_id          TEXT        PRIMARY KEY,
		market          TEXT        NOT NULL,
		as_of           DATE,
		files_processed INT         NOT NULL,
		files_skipped   INT         NOT NULL,
		records_total   INT         NOT NULL,
		records_kept    INT         NOT NULL,
		duplicates      INT         NOT NULL,
		empty_codes     INT         NOT NULL,
		details         JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the flow and audit tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
