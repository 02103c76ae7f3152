package logging

import (
	"log/slog"
)

const (
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarn    = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
	LevelPanic   = slog.Level(13)
	LevelUnknown = slog.Level(-128)
)

// enumeration of level keys (for performance. See Init's replaceFunc)
const (
	debugLevel = "debug"
	infoLevel  = "info"
	warnLevel  = "warn"
	errorLevel = "error"
	fatalLevel = "fatal"
	panicLevel = "panic"
)

// LevelFromString maps a textual log level to its slog.Level value. Unknown
// strings map to LevelUnknown so callers can reject them during startup
// validation rather than silently falling back to a default.
func LevelFromString(s string) slog.Level {
	switch s {
	case debugLevel:
		return LevelDebug
	case infoLevel:
		return LevelInfo
	case warnLevel:
		return LevelWarn
	case errorLevel:
		return LevelError
	case fatalLevel:
		return LevelFatal
	case panicLevel:
		return LevelPanic
	default:
		return LevelUnknown
	}
}

// Encoding denotes the wire format a logger writes its records in
type Encoding string

// supported encodings
const (
	EncodingJSON   Encoding = "json"
	EncodingLogfmt Encoding = "logfmt"
	EncodingPlain  Encoding = "plain"
)

type L struct {
	*slog.Logger
	*formatter
}

func newL(logger *slog.Logger) *L {
	return &L{
		Logger: logger,
		formatter: &formatter{
			l:        logger,
			exiter:   defaultExiter{},
			panicker: defaultPanicker{},
		}}
}

func (l *L) withExiter(e exiter) *L {
	l.formatter.exiter = e
	return l
}

func (l *L) withPanicker(p panicker) *L {
	l.formatter.panicker = p
	return l
}

// With returns a logger with the given key/value pairs added to every
// subsequent record
func (l *L) With(args ...any) *L {
	return newL(l.Logger.With(args...))
}
