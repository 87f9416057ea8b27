package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"classifieds-marketplace/internal/config"

	"github.com/rs/zerolog"
)

const service = "classifieds"

// New builds the process logger. Levels are trace|debug|info|warn|error and
// formats json|console; dev forces console output and disables sampling.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	var out io.Writer = os.Stdout
	if dev || strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return newLogger(out, cfg, dev)
}

func newLogger(out io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	l := zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	if cfg.Sampling && !dev {
		// warnings and errors are never dropped
		l = l.Sample(zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: 100},
			InfoSampler:  &zerolog.BasicSampler{N: 10},
		})
	}
	return &l
}

type ctxKey int

const (
	traceIDKey ctxKey = iota
	accountIDKey
	listingIDKey
)

var ctxFields = []struct {
	key  ctxKey
	name string
}{
	{traceIDKey, "trace_id"},
	{accountIDKey, "account_id"},
	{listingIDKey, "listing_id"},
}

// With returns base enriched with the request-scoped ids found in ctx.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	c := base.With()
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			c = c.Str(f.name, v)
		}
	}
	l := c.Logger()
	return &l
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func WithListingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, listingIDKey, id)
}

// TraceID returns the request trace id, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// TraceDuration logs entry and exit of name at trace level.
//
//	defer logging.TraceDuration(logger, "ListingUC.Create")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact masks a phone number or similar identifier outside dev mode,
// keeping the country prefix and the last two digits.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
