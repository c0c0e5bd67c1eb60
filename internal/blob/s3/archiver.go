package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/metrics"
)

// multipartThreshold switches uploads to the multipart manager. A month of
// history rarely gets this big, but a busy throne can.
const multipartThreshold = 8 * 1024 * 1024

// HistoryArchiveStore is the slice of the history store the archiver needs.
type HistoryArchiveStore interface {
	// ListBefore returns all history events created strictly before the
	// cutoff, oldest first.
	ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEvent, error)
	// DeleteBefore removes all history events created strictly before the
	// cutoff and returns how many were deleted.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves old history events out of the primary store into object
// storage as JSONL. Events are pruned from the store only after the uploaded
// object is confirmed to exist, so a failed upload never loses ledger data.
type Archiver struct {
	writer  *Writer
	reader  *Reader
	history HistoryArchiveStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer *Writer, reader *Reader, history HistoryArchiveStore, m *metrics.Metrics, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:  writer,
		reader:  reader,
		history: history,
		metrics: m,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveHistory uploads all history events older than the cutoff to
// archive/history/YYYY-MM.jsonl, verifies the object, then prunes the
// archived rows. Returns the number of events archived.
func (a *Archiver) ArchiveHistory(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.history.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path := archivePath(before)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	ok, err := a.reader.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history verify: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("s3blob: archive history verify: object %s missing after upload", path)
	}

	deleted, err := a.history.DeleteBefore(ctx, before)
	if err != nil {
		// The archive exists; the rows will be re-archived (and the object
		// overwritten) on the next run.
		return 0, fmt.Errorf("s3blob: archive history prune: %w", err)
	}

	a.metrics.HistoryArchived(int64(len(events)))
	a.logger.InfoContext(ctx, "history archived",
		slog.String("path", path),
		slog.Int("events", len(events)),
		slog.Int64("pruned", deleted),
		slog.Time("before", before),
	)

	return int64(len(events)), nil
}

// archivePath builds the object key, partitioned by the cutoff's year-month:
//
//	archive/history/2026-08.jsonl
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/history/%s.jsonl", before.UTC().Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
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
