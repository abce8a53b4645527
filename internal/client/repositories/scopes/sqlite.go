package scopes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx). Records are stored as JSON blobs keyed by
// common.ScopeRecordKeyPrefix + scope id.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func recordKey(scopeID int64) string {
	return fmt.Sprintf("%s%d", common.ScopeRecordKeyPrefix, scopeID)
}

func (r *SQLiteRepository) Load(ctx context.Context, scopeID int64) (*models.ScopeRecord, error) {
	query := `SELECT data FROM scope_records WHERE key = ?`
	row := r.db.QueryRowContext(ctx, query, recordKey(scopeID))

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load scope record: %w", err)
	}

	var rec models.ScopeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode scope record: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, record *models.ScopeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode scope record: %w", err)
	}

	query := `INSERT INTO scope_records (key, data, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query, recordKey(record.ScopeID), data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert scope record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, scopeID int64) error {
	query := `DELETE FROM scope_records WHERE key = ?`
	if _, err := r.db.ExecContext(ctx, query, recordKey(scopeID)); err != nil {
		return fmt.Errorf("failed to delete scope record: %w", err)
	}
	return nil
}
