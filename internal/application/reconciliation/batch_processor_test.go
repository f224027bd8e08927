package reconciliation_test

import (
	"context"
	"errors"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySource struct {
	inbox    map[string][]byte
	archived []string
	failed   []string
}

func (s *memorySource) List(context.Context) ([]reconciliation.SourceFile, error) {
	keys := make([]string, 0, len(s.inbox))
	for k := range s.inbox {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	files := make([]reconciliation.SourceFile, len(keys))
	for i, k := range keys {
		files[i] = reconciliation.SourceFile{Key: k, Name: path.Base(k)}
	}
	return files, nil
}

func (s *memorySource) Read(_ context.Context, key string) ([]byte, error) {
	b, ok := s.inbox[key]
	if !ok {
		return nil, errors.New("missing " + key)
	}
	return b, nil
}

func (s *memorySource) Archive(_ context.Context, key string) error {
	s.archived = append(s.archived, key)
	delete(s.inbox, key)
	return nil
}

func (s *memorySource) Fail(_ context.Context, key string) error {
	s.failed = append(s.failed, key)
	delete(s.inbox, key)
	return nil
}

type stubExtractor struct {
	raw *ledger.RawDocument
}

func (e stubExtractor) Extract(context.Context, string, []byte) (*ledger.RawDocument, error) {
	return e.raw, nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context) (func(context.Context) error, error) {
	return nil, reconciliation.ErrBatchInProgress
}

type countingLocker struct {
	acquired, released int
}

func (l *countingLocker) Acquire(context.Context) (func(context.Context) error, error) {
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type recordedBatch struct {
	runs, processed, failed int
}

func (r *recordedBatch) RecordBatch(_ context.Context, processed, failed int, _ time.Duration) {
	r.runs++
	r.processed = processed
	r.failed = failed
}

func TestBatchProcessor_Run(t *testing.T) {
	h := newHarness(t)
	source := &memorySource{inbox: map[string][]byte{
		"inbox/01-invoice.json": []byte(`{"id":"INV-1","type":"inv_sent","entity_id":"CL-001","entity_name":"Acme Corp","date":"2024-01-10","items":[{"name":"Widget","qty":"10","unit_price":5}]}`),
		"inbox/02-receipt.json": []byte(`{"id":"REC-1","type":"rec_sent","entity_id":"CL-001","entity_name":"Acme Corp","date":"2024-01-20","items":[{"name":"Widget","qty":4,"unit_price":5}]}`),
		"inbox/03-broken.json":  []byte(`{"id":`),
		"inbox/04-orphan.json":  []byte(`{"id":"INV-9","type":"inv_sent","entity_id":"N/A","entity_name":"null","items":[{"name":"Bolt","qty":1,"unit_price":1}]}`),
		"inbox/05-scan.png":     []byte("not really a png"),
	}}
	extracted := &ledger.RawDocument{
		ID:       "BILL-1",
		Type:     "inv_rec",
		EntityID: strPtr("V-1"),
		Items: []ledger.RawItem{{
			Name:      "Paper",
			Qty:       ledger.NewFlexDecimal(decimal.NewFromInt(2)),
			UnitPrice: ledger.NewFlexDecimal(decimal.NewFromInt(3)),
		}},
	}
	locker := &countingLocker{}
	processor := reconciliation.NewBatchProcessor(source, stubExtractor{raw: extracted}, h.ingestion, h.debts, zap.NewNop())
	processor.SetLocker(locker)
	recorder := &recordedBatch{}
	processor.SetRecorder(recorder)

	report, err := processor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, 1, report.Reviewed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Entities)
	assert.Equal(t, []string{"inbox/03-broken.json"}, source.failed)
	assert.Len(t, source.archived, 4)
	assert.Empty(t, source.inbox)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, recordedBatch{runs: 1, processed: 5, failed: 1}, *recorder)

	assert.True(t, decimal.NewFromInt(30).Equal(h.entity(t, "CL-001").Debt))
	assert.True(t, decimal.NewFromInt(-6).Equal(h.entity(t, "V-1").Debt))
	assert.Equal(t, "Partial", h.status(t, "INV-1"))
}

func TestBatchProcessor_ScanWithoutExtractorFails(t *testing.T) {
	h := newHarness(t)
	source := &memorySource{inbox: map[string][]byte{"inbox/scan.pdf": []byte("%PDF")}}
	processor := reconciliation.NewBatchProcessor(source, nil, h.ingestion, h.debts, zap.NewNop())

	report, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "no extractor configured")
	assert.Equal(t, []string{"inbox/scan.pdf"}, source.failed)
}

func TestBatchProcessor_LockHeld(t *testing.T) {
	h := newHarness(t)
	source := &memorySource{inbox: map[string][]byte{"inbox/a.json": []byte(`{}`)}}
	processor := reconciliation.NewBatchProcessor(source, nil, h.ingestion, h.debts, zap.NewNop())
	processor.SetLocker(busyLocker{})

	_, err := processor.Run(context.Background())
	assert.ErrorIs(t, err, reconciliation.ErrBatchInProgress)
	assert.Len(t, source.inbox, 1)
}
