package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBSystemFor(t *testing.T) {
	assert.Equal(t, "sqlite", DBSystemFor("sqlite"))
	assert.Equal(t, "postgresql", DBSystemFor("postgres"))
	assert.Equal(t, "postgresql", DBSystemFor(""))
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_RegistersCallbacks(t *testing.T) {
	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = DBSystemFor("sqlite")
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	assert.NotNil(t, db.Callback().Query().Get("otel_timing:before_query"))
	assert.NotNil(t, db.Callback().Raw().Get("otel_timing:after_raw"))
	require.NoError(t, db.Create(&tracedRow{Name: "Acme"}).Error)
}

func TestDBTracingPlugin_AfterQuery(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.NewNop())

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))

	tx := db.WithContext(ctx)
	tx.Statement.Table = "documents"
	tx.Statement.RowsAffected = 3
	tx.Error = errors.New("deadlock detected")
	plugin.afterQuery(tx)
	span.End()

	s := recorder.Ended()[0]
	attrs := attrMap(s.Attributes())
	assert.Equal(t, "documents", attrs["db.sql.table"])
	assert.Equal(t, int64(3), attrs["db.rows_affected"])
	assert.Equal(t, true, attrs["db.slow_query"])
	assert.Equal(t, codes.Error, s.Status().Code)

	var names []string
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query_warning")
}

func TestDBTracingPlugin_AfterQueryIgnoresNotFound(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")

	tx := db.WithContext(ctx)
	tx.Error = gorm.ErrRecordNotFound
	plugin.afterQuery(tx)
	span.End()

	s := recorder.Ended()[0]
	assert.NotEqual(t, codes.Error, s.Status().Code)
	assert.NotContains(t, attrMap(s.Attributes()), "db.slow_query")
}

func TestDBTracingPlugin_AfterQueryWithoutSpan(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	assert.NotPanics(t, func() {
		plugin.afterQuery(db.WithContext(context.Background()))
		markQueryStart(db.WithContext(context.Background()))
	})
}
