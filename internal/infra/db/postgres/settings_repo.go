package postgres

import (
	"context"
	"database/sql"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Load(ctx context.Context) (map[string]string, error) {
	const q = `SELECT setting_key, setting_value FROM monitor_settings;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}

func (r *SettingsRepository) Save(ctx context.Context, values map[string]string) error {
	const q = `
INSERT INTO monitor_settings (setting_key, setting_value)
VALUES ($1,$2)
ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value;`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, q, k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
