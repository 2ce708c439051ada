package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/logging"
	"github.com/kshao/chatvault/internal/models"
	"github.com/kshao/chatvault/internal/sanitize"
)

// Saver persists one parsed file atomically.
type Saver interface {
	SaveBatch(ctx context.Context, conversations []models.Conversation, messages []models.ChatMessage) error
}

// BatchImporter runs a multi-file import: each file is read, detected,
// parsed and persisted independently, so one corrupt export never takes
// down the batch.
type BatchImporter struct {
	reg     *Registry
	saver   Saver
	san     *sanitize.Sanitizer
	workers int
}

// NewBatchImporter creates a BatchImporter running up to workers files
// concurrently. saver may be nil for detect-and-parse dry runs.
func NewBatchImporter(reg *Registry, saver Saver, san *sanitize.Sanitizer, workers int) *BatchImporter {
	if workers < 1 {
		workers = 1
	}
	return &BatchImporter{reg: reg, saver: saver, san: san, workers: workers}
}

type fileOutcome struct {
	name string
	res  *Result
	det  Detection
	err  error
}

// ImportFiles processes every path and returns a report covering the whole
// batch. Per-file failures are recorded as report errors; ImportFiles
// itself fails only on context cancellation or a key lifecycle failure.
func (b *BatchImporter) ImportFiles(ctx context.Context, paths []string) (*models.ImportReport, error) {
	start := time.Now()
	report := models.NewImportReport(uuid.NewString())
	log := logging.WithComponent("importer").WithField("batch_id", report.BatchID)
	log.WithField("files", len(paths)).Info("starting import batch")

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var fatal error

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				out := b.importFile(ctx, path)
				mu.Lock()
				// A key lifecycle failure poisons every file; surface it
				// to the caller instead of burying it in report strings.
				if apperrors.IsKind(out.err, apperrors.KindCrypto) && fatal == nil {
					fatal = out.err
				}
				b.record(report, out)
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return report, ctx.Err()
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	report.Metadata.ProcessingTimeMS = time.Since(start).Milliseconds()
	if fatal != nil {
		return report, fatal
	}
	log.WithField("conversations", report.Metadata.TotalConversations).
		WithField("messages", report.Metadata.TotalMessages).
		WithField("failed", report.Metadata.FailedImports).
		Info("import batch finished")
	return report, nil
}

func (b *BatchImporter) importFile(ctx context.Context, path string) fileOutcome {
	// Filenames come from the user; sanitize before they reach any report
	// line or log field.
	out := fileOutcome{name: b.san.SanitizeFilename(filepath.Base(path))}

	raw, err := os.ReadFile(path)
	if err != nil {
		out.err = fmt.Errorf("failed to read file: %w", err)
		return out
	}

	res, det, err := b.reg.ParseContent(ctx, raw)
	out.det = det
	if err != nil {
		out.err = err
		return out
	}
	out.res = res

	if b.saver != nil && (len(res.Conversations) > 0 || len(res.Messages) > 0) {
		if err := b.saver.SaveBatch(ctx, res.Conversations, res.Messages); err != nil {
			out.err = err
			return out
		}
	}
	return out
}

// record folds one file outcome into the report. Callers hold the batch
// mutex.
func (b *BatchImporter) record(report *models.ImportReport, out fileOutcome) {
	report.Metadata.TotalFilesProcessed++
	if out.det.FallbackAttempted {
		report.Metadata.ParserFallbacks++
	}
	if out.det.OK {
		report.Metadata.DetectedFormats[string(out.det.Format)]++
	}

	if out.err != nil {
		report.Metadata.FailedImports++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", out.name, out.err))
		if out.res != nil {
			for _, w := range out.res.Warnings {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", out.name, w))
			}
		}
		return
	}

	report.Metadata.SuccessfulImports++
	report.Metadata.TotalConversations += len(out.res.Conversations)
	report.Metadata.TotalMessages += len(out.res.Messages)
	report.Conversations = append(report.Conversations, out.res.Conversations...)
	report.Messages = append(report.Messages, out.res.Messages...)
	for _, e := range out.res.Errors {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", out.name, e))
	}
	for _, w := range out.res.Warnings {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", out.name, w))
	}
}
