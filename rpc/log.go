package rpc

import (
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// NewDefaultLogger returns the logger a connection uses when none is
// supplied via WithLogger: logfmt to stderr, filtered to info and above,
// decorated with a timestamp.
func NewDefaultLogger() log.Logger {
	base := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	base = log.With(base, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(base, level.AllowInfo())
}
