package logger

import (
	"io"
	"os"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type options struct {
	writer    io.Writer
	format    Format
	level     string
	addCaller bool
}

func defaultOptions() options {
	return options{writer: os.Stdout, format: FormatText, level: "info", addCaller: true}
}

// Option configures a logger.
type Option func(*options)

// WithWriter sets the output destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFormat selects text or json output. Unknown values fall back to text.
func WithFormat(f string) Option {
	return func(o *options) {
		if Format(f) == FormatJSON {
			o.format = FormatJSON
			return
		}
		o.format = FormatText
	}
}

// WithLevel sets the initial level applied by Init.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithCaller toggles the source field.
func WithCaller(enabled bool) Option {
	return func(o *options) { o.addCaller = enabled }
}
