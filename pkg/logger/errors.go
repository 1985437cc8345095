package logger

import "errors"

// ErrUnknownLevel is returned for unparseable level names.
var ErrUnknownLevel = errors.New("unknown log level")
