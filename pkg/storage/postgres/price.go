package postgres

import (
	"context"
	"fmt"

	"cryptoetl/internal/crypto/model"

	"gorm.io/gorm"
)

// EnsurePriceHistoryTable creates the price history table if it is absent.
func (p *PostgresClient) EnsurePriceHistoryTable(ctx context.Context) error {
	return ensurePriceHistoryTable(p.DB.WithContext(ctx))
}

func ensurePriceHistoryTable(db *gorm.DB) error {
	return db.Exec(createPriceHistoryTableSQL).Error
}

// InsertPriceRecord appends one row inside a transaction: table assurance, insert, commit.
// Every failure rolls back and is returned as *model.LoadError; nothing is committed in that case.
func (p *PostgresClient) InsertPriceRecord(ctx context.Context, rec model.PriceRecord) error {
	tx := p.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return &model.LoadError{Stage: model.LoadStageBegin, Err: tx.Error}
	}

	done := false
	defer func() {
		if !done {
			tx.Rollback()
		}
	}()

	if err := ensurePriceHistoryTable(tx); err != nil {
		return &model.LoadError{Stage: model.LoadStageSchema, Err: err}
	}

	res := tx.Exec(insertPriceHistorySQL, rec.AssetID, rec.PriceUSD, rec.MarketCapUSD, rec.Volume24hUSD)
	if res.Error != nil {
		return &model.LoadError{Stage: model.LoadStageInsert, Err: res.Error}
	}
	if res.RowsAffected != 1 {
		return &model.LoadError{Stage: model.LoadStageInsert, Err: fmt.Errorf("expected 1 row affected, got %d", res.RowsAffected)}
	}

	// The transaction is finished once Commit is attempted, whatever its outcome.
	done = true
	if err := tx.Commit().Error; err != nil {
		return &model.LoadError{Stage: model.LoadStageCommit, Err: err}
	}
	return nil
}

// CountPriceRows returns how many rows are stored for assetID.
func (p *PostgresClient) CountPriceRows(ctx context.Context, assetID string) (int64, error) {
	var n int64
	err := p.DB.WithContext(ctx).
		Model(&PriceHistoryRow{}).
		Where("asset_id = ?", assetID).
		Count(&n).Error
	return n, err
}

// LatestPriceRow returns the most recently recorded row for assetID.
func (p *PostgresClient) LatestPriceRow(ctx context.Context, assetID string) (*PriceHistoryRow, error) {
	var row PriceHistoryRow
	err := p.DB.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("recorded_at DESC").
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
