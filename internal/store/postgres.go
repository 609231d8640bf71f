package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/parcel-ingest/internal/db"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// PostgresStore implements Store on PostGIS-enabled Postgres.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// NewPostgres connects a pool and wraps it.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	s := NewPostgresWithPool(pool)
	s.closeFn = pool.Close
	return s, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Pool exposes the pool for ad-hoc queries.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS properties (
	parcel_id        TEXT PRIMARY KEY,
	property_address TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	county           TEXT NOT NULL DEFAULT '',
	zip_code         TEXT NOT NULL DEFAULT '',
	owner_name       TEXT NOT NULL DEFAULT '',
	property_type    TEXT NOT NULL DEFAULT '',
	tax_info         JSONB NOT NULL DEFAULT '{}',
	sale_info        JSONB NOT NULL DEFAULT '{}',
	property_details JSONB NOT NULL DEFAULT '{}',
	location         JSONB,
	metadata         JSONB NOT NULL DEFAULT '{}',
	geom             geometry(Point, 4326),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_state_county ON properties(state, county);
CREATE INDEX IF NOT EXISTS idx_properties_zip ON properties(zip_code);
CREATE INDEX IF NOT EXISTS idx_properties_geom ON properties USING GIST (geom);

CREATE TABLE IF NOT EXISTS collection_runs (
	run_id       TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	metadata     JSONB NOT NULL DEFAULT '{}',
	collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_collection_runs_source ON collection_runs(source_id, collected_at DESC);

CREATE TABLE IF NOT EXISTS collection_run_records (
	run_id    TEXT NOT NULL REFERENCES collection_runs(run_id) ON DELETE CASCADE,
	parcel_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collection_run_records_run ON collection_run_records(run_id);
`

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when this store opened it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var propertyColumns = []string{
	"parcel_id", "property_address", "city", "state", "county", "zip_code",
	"owner_name", "property_type", "tax_info", "sale_info", "property_details",
	"location", "metadata", "geom", "updated_at",
}

const upsertPropertySQL = `INSERT INTO properties (parcel_id, property_address, city, state, county, zip_code,
	owner_name, property_type, tax_info, sale_info, property_details, location, metadata, geom, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, ST_GeomFromEWKB($14), $15)
ON CONFLICT (parcel_id) DO UPDATE SET
	property_address = EXCLUDED.property_address,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	county = EXCLUDED.county,
	zip_code = EXCLUDED.zip_code,
	owner_name = EXCLUDED.owner_name,
	property_type = EXCLUDED.property_type,
	tax_info = EXCLUDED.tax_info,
	sale_info = EXCLUDED.sale_info,
	property_details = EXCLUDED.property_details,
	location = EXCLUDED.location,
	metadata = EXCLUDED.metadata,
	geom = EXCLUDED.geom,
	updated_at = EXCLUDED.updated_at`

// UpsertRecord implements Store.
func (s *PostgresStore) UpsertRecord(ctx context.Context, rec *model.StandardizedRecord) error {
	if rec == nil || rec.ParcelID == "" {
		return errMissingParcelID
	}
	row, err := s.propertyRow(rec)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertPropertySQL, row...); err != nil {
		return eris.Wrapf(err, "postgres: upsert property %s", rec.ParcelID)
	}
	return nil
}

// UpsertRecords implements Store with a COPY into a temp table followed by
// one merge statement.
func (s *PostgresStore) UpsertRecords(ctx context.Context, recs []*model.StandardizedRecord) (int64, error) {
	recs, err := dedupe(recs)
	if err != nil {
		return 0, err
	}
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row, err := s.propertyRow(rec)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "properties",
		Columns:      propertyColumns,
		ConflictKeys: []string{"parcel_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert properties")
	}
	return n, nil
}

// propertyRow returns the values for propertyColumns in order.
func (s *PostgresStore) propertyRow(rec *model.StandardizedRecord) ([]any, error) {
	enc, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}
	point, err := encodePoint(rec.Location)
	if err != nil {
		return nil, err
	}
	var location any
	if enc.location != nil {
		location = enc.location
	}
	return []any{
		rec.ParcelID, rec.PropertyAddress, rec.City, rec.State, rec.County, rec.ZipCode,
		rec.OwnerName, rec.PropertyType, enc.taxInfo, enc.saleInfo, enc.details,
		location, enc.metadata, point, s.now(),
	}, nil
}

// encodePoint converts a location to EWKB with SRID 4326. A nil location
// yields a nil slice, stored as NULL.
func encodePoint(loc *model.Location) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	p := geom.NewPointFlat(geom.XY, []float64{loc.Coordinates.Longitude, loc.Coordinates.Latitude}).SetSRID(4326)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode location")
	}
	return data, nil
}

// decodePoint reverses encodePoint.
func decodePoint(data []byte) (*model.Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: decode location")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("postgres: location is %T, not a point", g)
	}
	return &model.Coordinates{Latitude: p.Y(), Longitude: p.X()}, nil
}

const getPropertySQL = `SELECT parcel_id, property_address, city, state, county, zip_code, owner_name, property_type,
	tax_info, sale_info, property_details, location, metadata, ST_AsEWKB(geom)
FROM properties WHERE parcel_id = $1`

// GetRecord implements Store.
func (s *PostgresStore) GetRecord(ctx context.Context, parcelID string) (*model.StandardizedRecord, error) {
	var (
		rec   model.StandardizedRecord
		enc   recordJSON
		point []byte
	)
	err := s.pool.QueryRow(ctx, getPropertySQL, parcelID).Scan(
		&rec.ParcelID, &rec.PropertyAddress, &rec.City, &rec.State, &rec.County, &rec.ZipCode,
		&rec.OwnerName, &rec.PropertyType, &enc.taxInfo, &enc.saleInfo, &enc.details,
		&enc.location, &enc.metadata, &point,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get property %s", parcelID)
	}
	if err := decodeRecord(&rec, enc); err != nil {
		return nil, err
	}

	// The geometry column is authoritative for coordinates.
	coords, err := decodePoint(point)
	if err != nil {
		return nil, err
	}
	if coords != nil {
		if rec.Location == nil {
			rec.Location = &model.Location{}
		}
		rec.Location.Coordinates = *coords
	}
	return &rec, nil
}

// SaveCollectionResult implements Store. The run row and its record ids are
// written in one transaction.
func (s *PostgresStore) SaveCollectionResult(ctx context.Context, result *model.CollectionResult) error {
	if result == nil {
		return eris.New("postgres: nil collection result")
	}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	meta, err := json.Marshal(result.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run metadata")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO collection_runs (run_id, source_id, success, message, record_count, metadata, collected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (run_id) DO NOTHING`,
		result.RunID, result.SourceID, result.Success, result.Message, len(result.RecordIDs), meta, result.Timestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert collection run %s", result.RunID)
	}

	if len(result.RecordIDs) > 0 {
		rows := make([][]any, len(result.RecordIDs))
		for i, id := range result.RecordIDs {
			rows[i] = []any{result.RunID, id}
		}
		if _, err := db.CopyFrom(ctx, tx, "collection_run_records", []string{"run_id", "parcel_id"}, rows); err != nil {
			return eris.Wrapf(err, "postgres: record ids for run %s", result.RunID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit tx")
	}
	return nil
}

// ListCollectionResults implements Store, newest first. Record ids are not
// loaded.
func (s *PostgresStore) ListCollectionResults(ctx context.Context, sourceID string, limit int) ([]model.CollectionResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, source_id, success, message, metadata, collected_at FROM collection_runs
WHERE source_id = $1 ORDER BY collected_at DESC LIMIT $2`,
		sourceID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list collection runs for %s", sourceID)
	}
	defer rows.Close()

	var out []model.CollectionResult
	for rows.Next() {
		var (
			r    model.CollectionResult
			meta []byte
		)
		if err := rows.Scan(&r.RunID, &r.SourceID, &r.Success, &r.Message, &meta, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan collection run")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal run metadata")
			}
		}
		r.RecordIDs = []string{}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate collection runs")
}
