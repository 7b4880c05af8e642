// Package logging configures structured JSON logging for a ledger node,
// mirroring the shape of the service logging setup this project's
// ambient stack was modeled on: a slog.JSONHandler with renamed standard
// keys, bridged onto the stdlib log package for packages that haven't been
// converted to slog yet.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the default slog logger to emit structured JSON tagged
// with the node's name and role, and bridges the standard library logger so
// existing call sites that still use log.Printf keep working.
func Setup(node, role string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("node", strings.TrimSpace(node))}
	if role = strings.TrimSpace(role); role != "" {
		attrs = append(attrs, slog.String("role", role))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
