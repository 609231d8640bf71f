package model

import "time"

// Metadata keys written into CollectionResult.Metadata.
const (
	MetaRawDataPath    = "rawDataPath"
	MetaRecordsFetched = "recordsFetched"
	MetaRecordsFailed  = "recordsFailed"
	MetaErrorKind      = "error_kind"
	MetaCollectorType  = "collectorType"
	MetaDurationMs     = "durationMs"
)

// CollectionResult is the outcome of one collection run. It is produced once
// per run and not mutated afterwards.
type CollectionResult struct {
	RunID     string         `json:"runId"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	RecordIDs []string       `json:"recordIds"`
	Timestamp time.Time      `json:"timestamp"`
	SourceID  string         `json:"sourceId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewCollectionSuccess builds a successful result.
func NewCollectionSuccess(sourceID, message string, recordIDs []string, meta map[string]any) *CollectionResult {
	if recordIDs == nil {
		recordIDs = []string{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return &CollectionResult{
		Success:   true,
		Message:   message,
		RecordIDs: recordIDs,
		Timestamp: time.Now().UTC(),
		SourceID:  sourceID,
		Metadata:  meta,
	}
}

// NewCollectionFailure builds a structured failure. kind classifies the
// failure (collector_not_found, source_unavailable, collection_error).
func NewCollectionFailure(sourceID, kind, message string) *CollectionResult {
	return &CollectionResult{
		Success:   false,
		Message:   message,
		RecordIDs: []string{},
		Timestamp: time.Now().UTC(),
		SourceID:  sourceID,
		Metadata:  map[string]any{MetaErrorKind: kind},
	}
}

// ErrorKind returns the failure classification, if any.
func (r *CollectionResult) ErrorKind() string {
	if r == nil {
		return ""
	}
	kind, _ := r.Metadata[MetaErrorKind].(string)
	return kind
}
