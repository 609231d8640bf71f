// Package pipeline converts raw property records from any source into the
// canonical StandardizedRecord: source mapping, address normalization,
// geocoding, enrichment and soft validation.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-ingest/internal/model"
	"github.com/sells-group/parcel-ingest/pkg/geocode"
)

// Stage names reported in TransformationError.
const (
	StageStandardize      = "standardize"
	StageNormalizeAddress = "normalize_address"
	StageGeocode          = "geocode"
	StageEnrich           = "enrich"
	StageValidate         = "validate"
)

// Geocoder resolves a one-line address. geocode.Client satisfies it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// TransformationStep is a named enrichment applied after the built-in
// stages. Returning an error fails the whole record.
type TransformationStep func(ctx context.Context, rec *model.StandardizedRecord) error

// ValidationRule inspects a record and reports whether it passes. It must not
// modify the record.
type ValidationRule func(rec *model.StandardizedRecord) (valid bool, message string)

// SourceStandardizer maps one source's raw schema to the canonical record.
type SourceStandardizer func(raw model.RawRecord) *model.StandardizedRecord

// TransformationError reports the stage at which Process failed. Panics
// inside any stage surface as a TransformationError too.
type TransformationError struct {
	Stage    string
	SourceID string
	Err      error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed for source %q: %v", e.Stage, e.SourceID, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

type namedStep struct {
	name string
	fn   TransformationStep
}

type namedRule struct {
	name string
	fn   ValidationRule
}

// Pipeline transforms raw records. It is safe for concurrent use;
// registrations may happen while records are processed.
type Pipeline struct {
	geocoder Geocoder
	now      func() time.Time
	log      *zap.Logger

	mu      sync.RWMutex
	steps   []namedStep
	rules   []namedRule
	sources map[string]SourceStandardizer
}

// New creates a Pipeline. A nil geocoder disables geocoding enrichment.
func New(geocoder Geocoder) *Pipeline {
	return &Pipeline{
		geocoder: geocoder,
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.L().With(zap.String("component", "pipeline")),
		sources:  make(map[string]SourceStandardizer),
	}
}

// RegisterTransformationStep appends a step. Steps run in registration order
// after the built-in enrichment.
func (p *Pipeline) RegisterTransformationStep(name string, fn TransformationStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, namedStep{name: name, fn: fn})
}

// RegisterValidationRule appends a rule. Rules run in registration order
// after the built-in required-field checks.
func (p *Pipeline) RegisterValidationRule(name string, fn ValidationRule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, namedRule{name: name, fn: fn})
}

// RegisterSourceStandardization sets the mapping for sourceType, replacing
// any earlier one.
func (p *Pipeline) RegisterSourceStandardization(sourceType string, fn SourceStandardizer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[sourceType] = fn
}

// Process runs raw through every stage. sourceType selects the source
// mapping; when empty, raw.SourceType is used. Any stage failure, including a
// panic, aborts the record with a *TransformationError. Geocoding failures
// are not stage failures: the record is returned without a location.
func (p *Pipeline) Process(ctx context.Context, raw model.RawRecord, sourceType string) (rec *model.StandardizedRecord, err error) {
	if sourceType == "" {
		sourceType = raw.SourceType
	}
	stage := StageStandardize
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &TransformationError{Stage: stage, SourceID: raw.SourceID, Err: eris.Errorf("panic: %v", r)}
		}
	}()

	rec, err = p.standardizeOrKeep(raw, sourceType)
	if err != nil {
		return nil, &TransformationError{Stage: stage, SourceID: raw.SourceID, Err: err}
	}

	stage = StageNormalizeAddress
	rec.PropertyAddress = NormalizeAddress(rec.PropertyAddress)

	stage = StageGeocode
	p.geocodeRecord(ctx, rec)

	stage = StageEnrich
	rec.Metadata.LastUpdated = p.now()
	p.mu.RLock()
	steps := append([]namedStep(nil), p.steps...)
	rules := append([]namedRule(nil), p.rules...)
	p.mu.RUnlock()
	for _, s := range steps {
		stage = StageEnrich + ":" + s.name
		if err := s.fn(ctx, rec); err != nil {
			return nil, &TransformationError{Stage: stage, SourceID: raw.SourceID, Err: err}
		}
	}

	stage = StageValidate
	p.validate(rec, rules)
	return rec, nil
}

// Standardize applies only the mapping stage: the registered mapping for
// sourceType, or the generic alias table. Provenance metadata is always
// stamped.
func (p *Pipeline) Standardize(raw model.RawRecord, sourceType string) *model.StandardizedRecord {
	p.mu.RLock()
	fn, ok := p.sources[sourceType]
	p.mu.RUnlock()

	var rec *model.StandardizedRecord
	if ok {
		rec = fn(raw)
	}
	if rec == nil {
		rec = standardizeGeneric(raw)
	}
	stampMetadata(rec, raw, sourceType, p.now)
	return rec
}

// standardizeOrKeep skips remapping for records already in canonical shape,
// which makes reprocessing idempotent on identity fields.
func (p *Pipeline) standardizeOrKeep(raw model.RawRecord, sourceType string) (*model.StandardizedRecord, error) {
	if !isCanonical(raw) {
		return p.Standardize(raw, sourceType), nil
	}
	rec, err := fromCanonical(raw)
	if err != nil {
		p.log.Debug("pipeline: canonical decode failed, remapping",
			zap.String("source_id", raw.SourceID), zap.Error(err))
		return p.Standardize(raw, sourceType), nil
	}
	stampMetadata(rec, raw, sourceType, p.now)
	return rec, nil
}

// geocodeRecord attaches coordinates. It never fails the record.
func (p *Pipeline) geocodeRecord(ctx context.Context, rec *model.StandardizedRecord) {
	if p.geocoder == nil || rec.Location != nil {
		return
	}
	address := rec.CompositeAddress()
	if address == "" {
		return
	}

	res, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		p.log.Warn("pipeline: geocoding failed, continuing without location",
			zap.String("parcel_id", rec.ParcelID),
			zap.String("address", address),
			zap.Error(err),
		)
		return
	}
	if res == nil {
		p.log.Debug("pipeline: no geocoding match", zap.String("address", address))
		return
	}
	rec.Location = &model.Location{
		Coordinates:      model.Coordinates{Latitude: res.Latitude, Longitude: res.Longitude},
		FormattedAddress: res.FormattedAddress,
		Confidence:       res.Confidence,
	}
}
