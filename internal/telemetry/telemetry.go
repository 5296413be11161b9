// Copyright (c) 2025 Justin Cranford
//
// Package telemetry provides the ambient structured-logging service used by
// the orchestrator. It never logs secret material (password bytes, shares,
// the combined secret, or the derived key) — only factor ids, kinds, and
// error classifications.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Service bundles a structured logger with the metadata the orchestrator
// attaches to every derivation-scoped log line.
type Service struct {
	Slogger   *slog.Logger
	Name      string
	StartTime time.Time
}

// New builds a Service whose logger fans out to every given handler in
// addition to a default text handler on stderr. Passing no handlers yields a
// plain stderr logger.
func New(name string, extra ...slog.Handler) *Service {
	handlers := append([]slog.Handler{slog.NewTextHandler(os.Stderr, nil)}, extra...)
	logger := slog.New(slogmulti.Fanout(handlers...)).With("component", name)
	return &Service{Slogger: logger, Name: name, StartTime: time.Now()}
}

// RequireNewForTest builds a Service for use in tests; silent disables the
// stderr handler so test output stays quiet.
func RequireNewForTest(name string, silent bool) *Service {
	if silent {
		return &Service{Slogger: slog.New(slog.NewTextHandler(discard{}, nil)).With("component", name), Name: name, StartTime: time.Now()}
	}
	return New(name)
}

// discard implements io.Writer by dropping everything written to it.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// NoOp returns a Service whose logger discards everything, for callers that
// don't want any diagnostic output at all.
func NoOp() *Service {
	return &Service{Slogger: slog.New(slog.NewTextHandler(discard{}, nil)), Name: "noop", StartTime: time.Now()}
}

// WithFactor returns a derived logger annotated with a factor id and kind,
// used by the orchestrator around each handler invocation.
func (s *Service) WithFactor(ctx context.Context, id, kind string) *slog.Logger {
	return s.Slogger.With("factor_id", id, "factor_type", kind)
}
