package log

import (
	"time"

	"go.uber.org/zap"
)

var (
	Skip       = zap.Skip
	Binary     = zap.Binary
	Bool       = zap.Bool
	ByteString = zap.ByteString
	Float64    = zap.Float64
	Float32    = zap.Float32
	Int        = zap.Int
	Int64      = zap.Int64
	Int32      = zap.Int32
	Uint       = zap.Uint
	Uint64     = zap.Uint64
	String     = zap.String
	Strings    = zap.Strings
	Stringer   = zap.Stringer
	Time       = zap.Time
	Duration   = zap.Duration
	Any        = zap.Any
	Namespace  = zap.Namespace
)

// ErrorField is named this way to avoid a clash with the Error log function.
func ErrorField(err error) Field {
	return zap.Error(err)
}

// Float is a shortcut for Float64
func Float(key string, val float64) Field {
	return zap.Float64(key, val)
}

func Since(key string, start time.Time) Field {
	return zap.Duration(key, time.Since(start))
}
