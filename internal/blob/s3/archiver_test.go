package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

func discardLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeWriter struct {
	puts map[string][]byte
}

func newFakeWriter() *fakeWriter { return &fakeWriter{puts: make(map[string][]byte)} }

func (w *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts[path] = buf
	return nil
}

func (w *fakeWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return w.Put(ctx, path, data, "")
}

type fakePositionHistory struct {
	rows []domain.ClosedPosition
}

func (f *fakePositionHistory) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.ClosedPosition, error) {
	if opts.Until == nil {
		return f.rows, nil
	}
	var out []domain.ClosedPosition
	for _, r := range f.rows {
		if r.ClosedAt.Before(*opts.Until) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePriceSnapshots struct {
	samples []domain.PriceSample
}

func (f *fakePriceSnapshots) Snapshot() []domain.PriceSample { return f.samples }

func TestArchivePositionsUploadsJSONLBeforeCutoff(t *testing.T) {
	cutoff := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	history := &fakePositionHistory{rows: []domain.ClosedPosition{
		{OpenPosition: domain.OpenPosition{ID: "p1", Asset: "BTC"}, ClosedAt: cutoff.Add(-time.Hour)},
		{OpenPosition: domain.OpenPosition{ID: "p2", Asset: "ETH"}, ClosedAt: cutoff.Add(time.Hour)}, // after cutoff, excluded
	}}
	w := newFakeWriter()
	a := NewArchiver(w, history, &fakePriceSnapshots{}, discardLog())

	count, err := a.ArchivePositions(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchivePositions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 archived row, got %d", count)
	}

	path := archivePath("positions", cutoff)
	buf, ok := w.puts[path]
	if !ok {
		t.Fatalf("expected upload at %s", path)
	}

	var row domain.ClosedPosition
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&row); err != nil {
		t.Fatalf("decode archived row: %v", err)
	}
	if row.ID != "p1" {
		t.Fatalf("expected p1 archived, got %s", row.ID)
	}
}

func TestArchivePositionsSkipsUploadWhenEmpty(t *testing.T) {
	w := newFakeWriter()
	a := NewArchiver(w, &fakePositionHistory{}, &fakePriceSnapshots{}, discardLog())

	count, err := a.ArchivePositions(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchivePositions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows, got %d", count)
	}
	if len(w.puts) != 0 {
		t.Fatal("expected no upload when there is nothing to archive")
	}
}

func TestArchivePriceSnapshotsUploadsCurrentSamples(t *testing.T) {
	at := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	prices := &fakePriceSnapshots{samples: []domain.PriceSample{
		{Asset: "BTC", Price: 50000, At: at.Add(-time.Second)},
		{Asset: "ETH", Price: 3000, At: at.Add(-time.Second)},
	}}
	w := newFakeWriter()
	a := NewArchiver(w, &fakePositionHistory{}, prices, discardLog())

	count, err := a.ArchivePriceSnapshots(context.Background(), at)
	if err != nil {
		t.Fatalf("ArchivePriceSnapshots: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 samples archived, got %d", count)
	}
	if len(w.puts) != 1 {
		t.Fatalf("expected exactly 1 upload, got %d", len(w.puts))
	}
}
