package backend

import (
	"context"

	"github.com/acorn-io/dns01-hook/pkg/model"
)

// Provider is a DNS provider API that challenge records are published with.
// Record names passed in and returned are relative to zone, "@" being the apex.
type Provider interface {
	ListZones(ctx context.Context) ([]string, error)
	// ListRecords returns the page of TXT records that cursor points at. The
	// first page is requested with an empty cursor.
	ListRecords(ctx context.Context, zone, cursor string) (model.RecordPage, error)
	CreateRecord(ctx context.Context, zone string, record model.Record) error
	DeleteRecord(ctx context.Context, zone string, record model.Record) error
}
