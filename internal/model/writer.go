package model

import "context"

// RecordWriter defines a generic interface for persisting a day's traffic
// records to an external store.
type RecordWriter interface {
	WriteRecords(ctx context.Context, records []TrafficRecord) error
	Close() error
}
