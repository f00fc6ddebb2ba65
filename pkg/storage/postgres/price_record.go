package postgres

import (
	"time"

	"cryptoetl/internal/crypto/model"
)

// PriceHistoryTable is append-only: one row per successful pipeline run.
const PriceHistoryTable = "crypto_price_history"

const createPriceHistoryTableSQL = `CREATE TABLE IF NOT EXISTS ` + PriceHistoryTable + ` (
	asset_id       VARCHAR          NOT NULL,
	price_usd      DOUBLE PRECISION NOT NULL,
	market_cap_usd DOUBLE PRECISION NOT NULL,
	volume_24h_usd DOUBLE PRECISION NOT NULL,
	recorded_at    TIMESTAMPTZ      NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// recorded_at is omitted so the column default assigns it.
const insertPriceHistorySQL = `INSERT INTO ` + PriceHistoryTable +
	` (asset_id, price_usd, market_cap_usd, volume_24h_usd) VALUES (?, ?, ?, ?)`

// PriceHistoryRow is a persisted price snapshot, used for reads.
type PriceHistoryRow struct {
	AssetID      string    `gorm:"column:asset_id;type:varchar;not null"`
	PriceUSD     float64   `gorm:"column:price_usd;type:double precision;not null"`
	MarketCapUSD float64   `gorm:"column:market_cap_usd;type:double precision;not null"`
	Volume24hUSD float64   `gorm:"column:volume_24h_usd;type:double precision;not null"`
	RecordedAt   time.Time `gorm:"column:recorded_at;type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the default table name for GORM.
func (PriceHistoryRow) TableName() string {
	return PriceHistoryTable
}

// Record drops the server timestamp.
func (r PriceHistoryRow) Record() model.PriceRecord {
	return model.PriceRecord{
		AssetID:      r.AssetID,
		PriceUSD:     r.PriceUSD,
		MarketCapUSD: r.MarketCapUSD,
		Volume24hUSD: r.Volume24hUSD,
	}
}
