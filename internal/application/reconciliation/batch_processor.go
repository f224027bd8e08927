package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SourceFile identifies one document waiting in the inbox
type SourceFile struct {
	Key  string
	Name string
}

// DocumentSource is where batch input comes from. Files are moved to the
// archive after success and to the failed area after an error; nothing is
// ever deleted.
type DocumentSource interface {
	List(ctx context.Context) ([]SourceFile, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Archive(ctx context.Context, key string) error
	Fail(ctx context.Context, key string) error
}

// Extractor turns a scanned document (image or PDF) into a raw record
type Extractor interface {
	Extract(ctx context.Context, name string, content []byte) (*ledger.RawDocument, error)
}

// BatchLocker guards a batch run across processes. Acquire returns
// ErrBatchInProgress when another run holds the lock.
type BatchLocker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// BatchRecorder observes finished batch runs
type BatchRecorder interface {
	RecordBatch(ctx context.Context, processed, failed int, elapsed time.Duration)
}

// BatchProcessor ingests every file in a DocumentSource sequentially. A
// failing document is moved aside and does not stop the run.
type BatchProcessor struct {
	source    DocumentSource
	extractor Extractor
	ingestion *IngestionService
	debts     *DebtService
	locker    BatchLocker
	recorder  BatchRecorder
	logger    *zap.Logger
}

// NewBatchProcessor creates a new BatchProcessor. extractor may be nil when
// the inbox only ever holds JSON records.
func NewBatchProcessor(source DocumentSource, extractor Extractor, ingestion *IngestionService, debts *DebtService, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		source:    source,
		extractor: extractor,
		ingestion: ingestion,
		debts:     debts,
		logger:    logger,
	}
}

// SetLocker sets the cross-process lock
func (p *BatchProcessor) SetLocker(locker BatchLocker) {
	p.locker = locker
}

// SetRecorder sets the observer notified after every run
func (p *BatchProcessor) SetRecorder(recorder BatchRecorder) {
	p.recorder = recorder
}

// Run processes the inbox and finishes with a full debt recompute
func (p *BatchProcessor) Run(ctx context.Context) (*BatchReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "batch", "run")
	defer span.End()

	if p.locker != nil {
		release, err := p.locker.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("Failed to release batch lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	files, err := p.source.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchFiles, len(files))
	p.logger.Info("Batch started", zap.Int("files", len(files)))

	report := &BatchReport{Items: make([]BatchItemResult, 0, len(files))}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := p.processOne(ctx, f)
		report.Processed++
		switch {
		case item.Error != "":
			report.Failed++
		case item.Classification == partner.ClassificationAccepted.String():
			report.Accepted++
		default:
			report.Reviewed++
		}
		report.Items = append(report.Items, item)
	}

	n, err := p.debts.RecomputeAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("recompute debts: %w", err)
	}
	report.Entities = n
	if p.recorder != nil {
		p.recorder.RecordBatch(ctx, report.Processed, report.Failed, time.Since(start))
	}

	p.logger.Info("Batch finished",
		zap.Int("processed", report.Processed),
		zap.Int("accepted", report.Accepted),
		zap.Int("reviewed", report.Reviewed),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (p *BatchProcessor) processOne(ctx context.Context, f SourceFile) BatchItemResult {
	item := BatchItemResult{Key: f.Key}
	result, err := p.ingestFile(ctx, f)
	if err != nil {
		p.logger.Error("Document failed",
			zap.String("key", f.Key),
			zap.Error(err))
		item.Error = err.Error()
		if mvErr := p.source.Fail(ctx, f.Key); mvErr != nil {
			p.logger.Error("Failed to move document to failed area", zap.String("key", f.Key), zap.Error(mvErr))
		}
		return item
	}

	item.DocumentID = result.DocumentID
	item.Classification = result.Classification
	if err := p.source.Archive(ctx, f.Key); err != nil {
		p.logger.Error("Failed to archive document", zap.String("key", f.Key), zap.Error(err))
	}
	return item
}

func (p *BatchProcessor) ingestFile(ctx context.Context, f SourceFile) (*IngestResult, error) {
	content, err := p.source.Read(ctx, f.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Key, err)
	}

	var raw *ledger.RawDocument
	if strings.EqualFold(path.Ext(f.Name), ".json") {
		raw = &ledger.RawDocument{}
		if err := json.Unmarshal(content, raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
	} else {
		if p.extractor == nil {
			return nil, fmt.Errorf("no extractor configured for %s", f.Name)
		}
		raw, err = p.extractor.Extract(ctx, f.Name, content)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return p.ingestion.IngestRaw(ctx, raw)
}
