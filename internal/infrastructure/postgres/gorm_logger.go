package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const slowQuery = 200 * time.Millisecond

// GormLogger routes gorm's logging to the service logger, preferring the request logger.
type GormLogger struct {
	log   observability.Logger
	level gormlogger.LogLevel
}

func NewGormLogger(logger observability.Logger) *GormLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &GormLogger{
		log:   logger.With(observability.F("component", "gorm")),
		level: gormlogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logctx.FromOr(ctx, l.log).Info("gorm_info", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logctx.FromOr(ctx, l.log).Warn("gorm_warn", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logctx.FromOr(ctx, l.log).Error("gorm_error", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	logger := logctx.FromOr(ctx, l.log)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logger.Error("db_query_failed",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_seconds", elapsed.Seconds()),
			observability.F("error", err.Error()),
		)
	case elapsed > slowQuery && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.Warn("db_query_slow",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_seconds", elapsed.Seconds()),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.Debug("db_query",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_seconds", elapsed.Seconds()),
		)
	}
}
