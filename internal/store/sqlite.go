package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Coordinates are
// kept in latitude and longitude columns.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "parcel-ingest.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	parcel_id        TEXT PRIMARY KEY,
	property_address TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	county           TEXT NOT NULL DEFAULT '',
	zip_code         TEXT NOT NULL DEFAULT '',
	owner_name       TEXT NOT NULL DEFAULT '',
	property_type    TEXT NOT NULL DEFAULT '',
	tax_info         TEXT NOT NULL DEFAULT '{}',
	sale_info        TEXT NOT NULL DEFAULT '{}',
	property_details TEXT NOT NULL DEFAULT '{}',
	location         TEXT,
	metadata         TEXT NOT NULL DEFAULT '{}',
	latitude         REAL,
	longitude        REAL,
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_properties_state_county ON properties(state, county);
CREATE INDEX IF NOT EXISTS idx_properties_zip ON properties(zip_code);

CREATE TABLE IF NOT EXISTS collection_runs (
	run_id       TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	success      INTEGER NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	metadata     TEXT NOT NULL DEFAULT '{}',
	collected_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_collection_runs_source ON collection_runs(source_id, collected_at);

CREATE TABLE IF NOT EXISTS collection_run_records (
	run_id    TEXT NOT NULL REFERENCES collection_runs(run_id) ON DELETE CASCADE,
	parcel_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collection_run_records_run ON collection_run_records(run_id);
`

// Migrate creates the tables when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertProperty = `INSERT INTO properties (parcel_id, property_address, city, state, county, zip_code,
	owner_name, property_type, tax_info, sale_info, property_details, location, metadata, latitude, longitude, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(parcel_id) DO UPDATE SET
	property_address = excluded.property_address,
	city = excluded.city,
	state = excluded.state,
	county = excluded.county,
	zip_code = excluded.zip_code,
	owner_name = excluded.owner_name,
	property_type = excluded.property_type,
	tax_info = excluded.tax_info,
	sale_info = excluded.sale_info,
	property_details = excluded.property_details,
	location = excluded.location,
	metadata = excluded.metadata,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	updated_at = excluded.updated_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertRecord implements Store.
func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec *model.StandardizedRecord) error {
	if rec == nil || rec.ParcelID == "" {
		return errMissingParcelID
	}
	return s.upsert(ctx, s.db, rec)
}

// UpsertRecords implements Store in a single transaction.
func (s *SQLiteStore) UpsertRecords(ctx context.Context, recs []*model.StandardizedRecord) (int64, error) {
	recs, err := dedupe(recs)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range recs {
		if err := s.upsert(ctx, tx, rec); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return int64(len(recs)), nil
}

func (s *SQLiteStore) upsert(ctx context.Context, ex execer, rec *model.StandardizedRecord) error {
	enc, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	var location, lat, lon any
	if rec.Location != nil {
		location = string(enc.location)
		lat = rec.Location.Coordinates.Latitude
		lon = rec.Location.Coordinates.Longitude
	}
	_, err = ex.ExecContext(ctx, sqliteUpsertProperty,
		rec.ParcelID, rec.PropertyAddress, rec.City, rec.State, rec.County, rec.ZipCode,
		rec.OwnerName, rec.PropertyType, string(enc.taxInfo), string(enc.saleInfo), string(enc.details),
		location, string(enc.metadata), lat, lon, s.now(),
	)
	return eris.Wrapf(err, "sqlite: upsert property %s", rec.ParcelID)
}

// GetRecord implements Store.
func (s *SQLiteStore) GetRecord(ctx context.Context, parcelID string) (*model.StandardizedRecord, error) {
	var (
		rec                                  model.StandardizedRecord
		taxInfo, saleInfo, details, metadata string
		location                             sql.NullString
		lat, lon                             sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT parcel_id, property_address, city, state, county, zip_code, owner_name, property_type,
	tax_info, sale_info, property_details, location, metadata, latitude, longitude
FROM properties WHERE parcel_id = ?`, parcelID,
	).Scan(
		&rec.ParcelID, &rec.PropertyAddress, &rec.City, &rec.State, &rec.County, &rec.ZipCode,
		&rec.OwnerName, &rec.PropertyType, &taxInfo, &saleInfo, &details, &location, &metadata, &lat, &lon,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get property %s", parcelID)
	}

	enc := recordJSON{
		taxInfo:  []byte(taxInfo),
		saleInfo: []byte(saleInfo),
		details:  []byte(details),
		metadata: []byte(metadata),
	}
	if location.Valid {
		enc.location = []byte(location.String)
	}
	if err := decodeRecord(&rec, enc); err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		if rec.Location == nil {
			rec.Location = &model.Location{}
		}
		rec.Location.Coordinates = model.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &rec, nil
}

// SaveCollectionResult implements Store.
func (s *SQLiteStore) SaveCollectionResult(ctx context.Context, result *model.CollectionResult) error {
	if result == nil {
		return eris.New("sqlite: nil collection result")
	}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	meta, err := json.Marshal(result.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run metadata")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO collection_runs (run_id, source_id, success, message, record_count, metadata, collected_at)
VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(run_id) DO NOTHING`,
		result.RunID, result.SourceID, result.Success, result.Message, len(result.RecordIDs), string(meta), result.Timestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert collection run %s", result.RunID)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		for _, id := range result.RecordIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO collection_run_records (run_id, parcel_id) VALUES (?, ?)`, result.RunID, id,
			); err != nil {
				return eris.Wrapf(err, "sqlite: record ids for run %s", result.RunID)
			}
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

// ListCollectionResults implements Store, newest first. Record ids are
// loaded from collection_run_records.
func (s *SQLiteStore) ListCollectionResults(ctx context.Context, sourceID string, limit int) ([]model.CollectionResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source_id, success, message, metadata, collected_at FROM collection_runs
WHERE source_id = ? ORDER BY collected_at DESC, rowid DESC LIMIT ?`, sourceID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list collection runs for %s", sourceID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CollectionResult
	for rows.Next() {
		var (
			r    model.CollectionResult
			meta string
		)
		if err := rows.Scan(&r.RunID, &r.SourceID, &r.Success, &r.Message, &meta, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan collection run")
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run metadata")
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate collection runs")
	}

	for i := range out {
		ids, err := s.runRecordIDs(ctx, out[i].RunID)
		if err != nil {
			return nil, err
		}
		out[i].RecordIDs = ids
	}
	return out, nil
}

func (s *SQLiteStore) runRecordIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parcel_id FROM collection_run_records WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record ids for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate record ids")
}
