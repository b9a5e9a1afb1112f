// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResultOK is the Recorder result for a successful workflow.
const ResultOK = "ok"

var tracer = otel.Tracer("github.com/holomush/passport/internal/identity")

// Recorder receives workflow outcomes, e.g. for metrics.
// result is ResultOK or the String() of the failing error kind.
type Recorder interface {
	RecordProvision(result string)
	RecordResolution(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordProvision(string)  {}
func (nopRecorder) RecordResolution(string) {}

// serviceOptions holds the optional collaborators shared by all services.
type serviceOptions struct {
	logger   *slog.Logger
	recorder Recorder
}

// ServiceOption configures a service.
type ServiceOption func(*serviceOptions)

// WithLogger sets the logger used by a service. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithRecorder sets the Recorder used by a service.
func WithRecorder(recorder Recorder) ServiceOption {
	return func(o *serviceOptions) { o.recorder = recorder }
}

func buildOptions(opts []ServiceOption) (serviceOptions, error) {
	o := serviceOptions{logger: slog.Default(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		return o, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	return o, nil
}

// endSpan records err on span (if any) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}
