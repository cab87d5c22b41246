package sse

import "goa.design/anthropic-codec/runtime/telemetry"

type (
	// Policy selects what the reader does with an event whose payload fails
	// to decode.
	Policy int

	// Option configures a Reader.
	Option func(*options)

	options struct {
		policy    Policy
		strict    bool
		maxBytes  int
		streamID  string
		requestID string
		logger    telemetry.Logger
		metrics   telemetry.Metrics
		tracer    telemetry.Tracer
	}
)

const (
	// SkipInvalid logs and counts undecodable events then moves on. This is
	// the default.
	SkipInvalid Policy = iota
	// AbortOnInvalid ends the stream with the first decode error.
	AbortOnInvalid
)

// DefaultMaxEventBytes bounds the data payload of a single event.
const DefaultMaxEventBytes = 16 << 20

// String returns the policy name used in configuration files.
func (p Policy) String() string {
	if p == AbortOnInvalid {
		return "abort"
	}
	return "skip"
}

// ParsePolicy maps "skip" and "abort" to their Policy. The empty string
// selects SkipInvalid.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "skip":
		return SkipInvalid, true
	case "abort":
		return AbortOnInvalid, true
	}
	return SkipInvalid, false
}

// WithPolicy sets the decode error policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithStrict rejects events whose type is not known to the codec instead of
// surfacing them as unknown events. Rejected events follow the policy.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// WithMaxEventBytes caps the size of an event payload. Larger events are
// treated as decode failures. Non-positive values keep the default.
func WithMaxEventBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithStreamID overrides the generated stream identifier.
func WithStreamID(id string) Option {
	return func(o *options) { o.streamID = id }
}

// WithRequestID attaches the API request identifier to log entries.
func WithRequestID(id string) Option {
	return func(o *options) { o.requestID = id }
}

// WithLogger sets the logger used to report skipped events.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer used to open one span per stream.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		maxBytes: DefaultMaxEventBytes,
		logger:   telemetry.NewNoopLogger(),
		metrics:  telemetry.NewNoopMetrics(),
		tracer:   telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
