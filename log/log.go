package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
)

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
	// Optional timezone to use for logging. If nil, local timezone is used.
	TimeZone *time.Location
}

// PrettyHandler writes one coloured line per record:
// [timestamp] LEVEL message {attrs as json}
type PrettyHandler struct {
	slog.Handler
	l        *log.Logger
	timeZone *time.Location
	attrs    []slog.Attr
	group    string
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, h.group, a)
		return true
	})

	var err error
	var b []byte
	if len(fields) > 0 {
		b, err = json.Marshal(fields)
		if err != nil {
			return err
		}
	}

	logTime := r.Time
	if h.timeZone != nil {
		logTime = logTime.In(h.timeZone)
	}

	// Format: [2023-04-15 15:05:05.000 -0700 PDT]
	timeStr := logTime.Format("[2006-01-02 15:04:05.000 -0700 MST]")
	msg := color.CyanString(r.Message)

	h.l.Println(timeStr, level, msg, color.HiBlackString(string(b)))

	return nil
}

// addField flattens groups into dotted keys and stringifies errors so they survive json.
func addField(fields map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addField(fields, key, ga)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		fields[key] = v.Error()
	case fmt.Stringer:
		fields[key] = v.String()
	default:
		fields[key] = v
	}
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.Handler = h.Handler.WithAttrs(attrs)
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.Handler = h.Handler.WithGroup(name)
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func NewPrettyHandler(
	out io.Writer,
	opts PrettyHandlerOptions,
) *PrettyHandler {
	h := &PrettyHandler{
		Handler:  slog.NewJSONHandler(out, &opts.SlogOpts),
		l:        log.New(out, "", 0),
		timeZone: opts.TimeZone,
	}

	return h
}

// Helper function to create a new handler with UTC timezone
func NewUTCPrettyHandler(
	out io.Writer,
	opts PrettyHandlerOptions,
) *PrettyHandler {
	opts.TimeZone = time.UTC
	return NewPrettyHandler(out, opts)
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
