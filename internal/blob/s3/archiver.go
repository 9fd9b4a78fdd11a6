package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// These follow the Interface Segregation Principle: the archiver only
// requires the query methods it actually calls, not the full domain store
// interfaces.
// ---------------------------------------------------------------------------

// PositionHistorySource provides read access to closed positions for
// archival purposes.
type PositionHistorySource interface {
	ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.ClosedPosition, error)
}

// PriceSnapshotSource provides a point-in-time dump of in-memory price
// buffer samples for archival before they age out of the ring.
type PriceSnapshotSource interface {
	Snapshot() []domain.PriceSample
}

// ---------------------------------------------------------------------------
// Archiver
// ---------------------------------------------------------------------------

// Archiver persists closed-position history and price buffer snapshots to
// S3-compatible object storage as newline-delimited JSON.
//
// Deletion of archived records from the primary store is intentionally NOT
// performed here -- that is a separate, explicit step to be executed after
// the archive has been verified.
type Archiver struct {
	writer    domain.BlobWriter
	positions PositionHistorySource
	prices    PriceSnapshotSource
	log       *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, positions PositionHistorySource, prices PriceSnapshotSource, log *slog.Logger) *Archiver {
	return &Archiver{writer: writer, positions: positions, prices: prices, log: log}
}

// ArchivePositions queries all closed positions before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at
// archive/positions/YYYY-MM.jsonl. Returns the count of archived records.
func (a *Archiver) ArchivePositions(ctx context.Context, before time.Time) (int64, error) {
	history, err := a.positions.ListHistory(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
	}
	if len(history) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(history)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions marshal: %w", err)
	}

	path := archivePath("positions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive positions upload: %w", err)
	}

	count := int64(len(history))
	a.log.Info("archived closed positions", "path", path, "count", count, "before", before.Format(time.RFC3339))
	return count, nil
}

// ArchivePriceSnapshots dumps the current contents of the price buffers to
// S3 at archive/price_snapshots/<at-unix>.jsonl. Intended to run on a short
// interval so in-memory ticks are not lost once the ring buffer prunes them.
func (a *Archiver) ArchivePriceSnapshots(ctx context.Context, at time.Time) (int64, error) {
	samples := a.prices.Snapshot()
	if len(samples) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(samples)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive price snapshots marshal: %w", err)
	}

	path := fmt.Sprintf("archive/price_snapshots/%d.jsonl", at.Unix())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive price snapshots upload: %w", err)
	}

	count := int64(len(samples))
	a.log.Info("archived price buffer snapshot", "path", path, "count", count, "at", at.Format(time.RFC3339))
	return count, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/positions/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
