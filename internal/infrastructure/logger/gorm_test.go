package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn() (string, int64) { return "SELECT * FROM payments", 2 }

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(10*time.Millisecond))

	gl.Trace(context.Background(), time.Now(), sqlFn, nil)
	gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("syntax error"))
	gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, logs.FilterMessage("SQL").Len())
	assert.Equal(t, 1, logs.FilterMessage("slow SQL").Len())
	assert.Equal(t, 1, logs.FilterMessage("SQL error").Len())
}

func TestGormLogger_RecordNotFoundLoggedWhenNotIgnored(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithIgnoreRecordNotFoundError(false))

	gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.FilterMessage("SQL error").Len())
}

func TestGormLogger_SilentAndLogMode(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), sqlFn, errors.New("x"))
	silent.Info(context.Background(), "ignored")
	assert.Zero(t, logs.Len())

	gl.Info(context.Background(), "connected to %s", "db")
	assert.Equal(t, 1, logs.FilterMessage("connected to db").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestStatementOp(t *testing.T) {
	tests := map[string]string{
		`SELECT * FROM "bank_movements" WHERE id = $1 LIMIT 1 FOR UPDATE`: "lock",
		"select count(*) from payments":                                  "select",
		`INSERT INTO "payments" ("id") VALUES ($1)`:                      "insert",
		"  update invoices set status = 'PAID'":                          "update",
		"DELETE FROM outbox_entries":                                     "delete",
		"BEGIN":                                                          "tx",
		"":                                                               "unknown",
		"CREATE INDEX x":                                                 "other",
	}
	for sql, want := range tests {
		assert.Equal(t, want, statementOp(sql), sql)
	}
}

func TestGormLogger_TagsLockStatements(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "bank_movements" WHERE id = $1 FOR UPDATE`, 1
	}, nil)

	entries := logs.FilterMessage("SQL").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "lock", entries[0].ContextMap()["op"])
	}
}
