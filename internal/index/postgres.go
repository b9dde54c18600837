package index

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/build-warden/internal/core"
)

// snapshotRow is one row of the index_snapshots table.
type snapshotRow struct {
	Name      string `db:"name"`
	Version   int    `db:"version"`
	Processed int64  `db:"processed"`
	Data      []byte `db:"data"`
}

// PostgresStore keeps the encoded index in a PostgreSQL row. Each save
// replaces the row in a single statement.
type PostgresStore struct {
	db   *sqlx.DB
	name string
}

// NewPostgresStore returns a store for the snapshot called name.
func NewPostgresStore(db *sqlx.DB, name string) *PostgresStore {
	return &PostgresStore{db: db, name: name}
}

// Location implements core.IndexStore.
func (s *PostgresStore) Location() string {
	return "postgres:index_snapshots/" + s.name
}

// Load reads the snapshot. A missing row yields an empty index.
func (s *PostgresStore) Load(ctx context.Context) (core.Index, error) {
	var row snapshotRow
	query := `SELECT name, version, processed, data FROM index_snapshots WHERE name = $1`
	if err := s.db.GetContext(ctx, &row, query, s.name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading index snapshot %s: %w", s.name, err)
	}

	idx, err := Decode(bytes.NewReader(row.Data))
	if err != nil {
		return nil, fmt.Errorf("reading index snapshot %s: %w", s.name, err)
	}
	return idx, nil
}

// Save upserts the snapshot.
func (s *PostgresStore) Save(ctx context.Context, idx core.Index) error {
	i, err := asIndex(idx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := i.Encode(&buf); err != nil {
		return err
	}

	row := snapshotRow{
		Name:      s.name,
		Version:   int(i.Version),
		Processed: int64(i.Processed), //nolint:gosec // counts stay far below 2^63
		Data:      buf.Bytes(),
	}
	query := `
		INSERT INTO index_snapshots (name, version, processed, data, updated_at)
		VALUES (:name, :version, :processed, :data, NOW())
		ON CONFLICT (name) DO UPDATE SET
			version = EXCLUDED.version,
			processed = EXCLUDED.processed,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("saving index snapshot %s: %w", s.name, err)
	}
	return nil
}
