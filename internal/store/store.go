// Package store persists standardized property records and collection run
// results. Postgres is the production backend; SQLite serves local runs and
// tests.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/db"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// Store is the persistence collaborator for collection runs. It satisfies
// collector.RecordSink.
type Store interface {
	// UpsertRecord inserts rec or replaces the stored record with the same
	// parcel id.
	UpsertRecord(ctx context.Context, rec *model.StandardizedRecord) error
	// UpsertRecords upserts a batch. When the batch repeats a parcel id the
	// last occurrence wins.
	UpsertRecords(ctx context.Context, recs []*model.StandardizedRecord) (int64, error)
	// GetRecord returns nil, nil when no record has parcelID.
	GetRecord(ctx context.Context, parcelID string) (*model.StandardizedRecord, error)

	SaveCollectionResult(ctx context.Context, result *model.CollectionResult) error
	ListCollectionResults(ctx context.Context, sourceID string, limit int) ([]model.CollectionResult, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres, "postgresql", "pgx":
		return NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case DriverSQLite, "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

var errMissingParcelID = eris.New("store: record has no parcel id")

// dedupe keeps the last record per parcel id, preserving first-seen order.
func dedupe(recs []*model.StandardizedRecord) ([]*model.StandardizedRecord, error) {
	idx := make(map[string]int, len(recs))
	out := make([]*model.StandardizedRecord, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		if r.ParcelID == "" {
			return nil, errMissingParcelID
		}
		if i, ok := idx[r.ParcelID]; ok {
			out[i] = r
			continue
		}
		idx[r.ParcelID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// recordJSON holds the JSON-encoded nested parts of a record.
type recordJSON struct {
	taxInfo, saleInfo, details, location, metadata []byte
}

func encodeRecord(rec *model.StandardizedRecord) (recordJSON, error) {
	var (
		out recordJSON
		err error
	)
	if out.taxInfo, err = json.Marshal(rec.TaxInfo); err != nil {
		return out, eris.Wrap(err, "store: marshal tax info")
	}
	if out.saleInfo, err = json.Marshal(rec.SaleInfo); err != nil {
		return out, eris.Wrap(err, "store: marshal sale info")
	}
	if out.details, err = json.Marshal(rec.PropertyDetails); err != nil {
		return out, eris.Wrap(err, "store: marshal property details")
	}
	if rec.Location != nil {
		if out.location, err = json.Marshal(rec.Location); err != nil {
			return out, eris.Wrap(err, "store: marshal location")
		}
	}
	if out.metadata, err = json.Marshal(rec.Metadata); err != nil {
		return out, eris.Wrap(err, "store: marshal metadata")
	}
	return out, nil
}

func decodeRecord(rec *model.StandardizedRecord, enc recordJSON) error {
	parts := []struct {
		data []byte
		dst  any
		name string
	}{
		{enc.taxInfo, &rec.TaxInfo, "tax info"},
		{enc.saleInfo, &rec.SaleInfo, "sale info"},
		{enc.details, &rec.PropertyDetails, "property details"},
		{enc.metadata, &rec.Metadata, "metadata"},
	}
	for _, p := range parts {
		if len(p.data) == 0 {
			continue
		}
		if err := json.Unmarshal(p.data, p.dst); err != nil {
			return eris.Wrapf(err, "store: unmarshal %s", p.name)
		}
	}
	if len(enc.location) > 0 && string(enc.location) != "null" {
		rec.Location = &model.Location{}
		if err := json.Unmarshal(enc.location, rec.Location); err != nil {
			return eris.Wrap(err, "store: unmarshal location")
		}
	}
	return nil
}
