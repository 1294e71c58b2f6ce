package warehouse

import "context"

// Watermark records, per entity, the source updated_at of the most recently
// successfully loaded record. It is never derived from wall-clock time.
type Watermark struct {
	EntityName  string `json:"entity_name"`
	WatermarkTS string `json:"watermark_ts"`
}

// WatermarkStore persists incremental-load state, one row per entity.
//
// Discipline for a pipeline run: read watermark, compute batch, write outputs,
// then write the new watermark. Advancing only after outputs are durable makes
// a crash in between replay already-loaded data on the next run; downstream
// writes are natural-key upserts, so replay is harmless (at-least-once).
// The watermark deliberately does not advance when a filtered batch is empty.
type WatermarkStore interface {
	// Get returns the stored watermark for the entity, or nil when the
	// entity has never completed a load.
	Get(ctx context.Context, entityName string) (*Watermark, error)
	// Set stores the new watermark timestamp for the entity.
	Set(ctx context.Context, entityName, watermarkTS string) error
}
