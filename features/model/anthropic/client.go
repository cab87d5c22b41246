// Package anthropic bridges the codec to github.com/anthropics/anthropic-sdk-go.
// Requests are encoded with the codec and handed to the SDK as
// sdk.MessageNewParams; responses and stream events are decoded from the
// SDK's raw JSON so that content types the SDK does not model yet survive as
// unknown variants.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"go.opentelemetry.io/otel/codes"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
	"goa.design/anthropic-codec/runtime/union"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK client used by the
	// bridge. It is satisfied by *sdk.MessageService so callers can pass either a
	// real client or a mock in tests.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
		NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
	}

	// Options configures optional bridge behavior.
	Options struct {
		// DefaultModel is used when a request leaves Model empty. Prefer the
		// typed constants from anthropic-sdk-go, for example
		// string(sdk.ModelClaudeSonnet4_5_20250929).
		DefaultModel string

		// MaxTokens is used when a request leaves MaxTokens unset. When zero,
		// callers must set it on every request.
		MaxTokens int

		// Strict rejects response content and stream events whose type the
		// codec does not know.
		Strict bool

		// Logger, Metrics and Tracer default to no-op implementations.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		Tracer  telemetry.Tracer
	}

	// Client sends codec requests through the Anthropic SDK.
	Client struct {
		msg          MessagesClient
		defaultModel string
		maxTok       int
		strict       bool
		logger       telemetry.Logger
		metrics      telemetry.Metrics
		tracer       telemetry.Tracer
	}
)

// Metric names recorded by the client.
const (
	MetricRequests        = "anthropic.requests"
	MetricRequestDuration = "anthropic.request.duration"
)

// New builds a client from the provided Anthropic Messages client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	c := &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		maxTok:       opts.MaxTokens,
		strict:       opts.Strict,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
	}
	if c.logger == nil {
		c.logger = telemetry.NewNoopLogger()
	}
	if c.metrics == nil {
		c.metrics = telemetry.NewNoopMetrics()
	}
	if c.tracer == nil {
		c.tracer = telemetry.NewNoopTracer()
	}
	return c, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Messages.New request and decodes the
// response.
func (c *Client) Complete(ctx context.Context, req model.MessageRequest) (model.Message, error) {
	params, err := c.prepare(req)
	if err != nil {
		return model.Message{}, err
	}
	ctx, span := c.tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	start := time.Now()
	msg, err := c.msg.New(ctx, params)
	c.metrics.RecordTimer(MetricRequestDuration, time.Since(start), "op", "new")
	if err != nil {
		err = translateError("anthropic messages.new", err)
		c.fail(ctx, span, "new", err)
		return model.Message{}, err
	}
	out, err := c.decodeMessage(msg)
	if err != nil {
		c.fail(ctx, span, "new", err)
		return model.Message{}, err
	}
	c.metrics.IncCounter(MetricRequests, 1, "op", "new", "status", "ok")
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Stream invokes Messages.NewStreaming and returns a stream decoding each
// event with the codec.
func (c *Client) Stream(ctx context.Context, req model.MessageRequest) (*Stream, error) {
	params, err := c.prepare(req)
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		err = translateError("anthropic messages.new stream", err)
		c.metrics.IncCounter(MetricRequests, 1, "op", "stream", "status", "error")
		return nil, err
	}
	c.metrics.IncCounter(MetricRequests, 1, "op", "stream", "status", "ok")
	return newStream(stream, c.strict, c.logger), nil
}

// prepare applies the client defaults, validates the request and converts it
// to SDK parameters.
func (c *Client) prepare(req model.MessageRequest) (sdk.MessageNewParams, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTok
	}
	if err := req.Validate(); err != nil {
		return sdk.MessageNewParams{}, fmt.Errorf("anthropic: %w", err)
	}
	return EncodeRequest(req)
}

func (c *Client) decodeMessage(msg *sdk.Message) (model.Message, error) {
	out, err := DecodeMessage(msg)
	if err != nil {
		return model.Message{}, err
	}
	if !c.strict {
		return out, nil
	}
	if err := out.ValidateKnown(); err != nil {
		return model.Message{}, fmt.Errorf("anthropic: %w", err)
	}
	return out, nil
}

func (c *Client) fail(ctx context.Context, span telemetry.Span, op string, err error) {
	c.metrics.IncCounter(MetricRequests, 1, "op", op, "status", "error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error(ctx, "anthropic request failed", "op", op, "err", err)
}

// EncodeRequest converts a codec request into SDK parameters. The stream
// flag is dropped: the SDK sets it from the method used.
func EncodeRequest(req model.MessageRequest) (sdk.MessageNewParams, error) {
	req.Stream = false
	req.Messages = blockForm(req.Messages)
	if req.System != nil {
		if text, ok := union.Pick[model.TextContent](req.System.Value); ok {
			s := model.NewSystemBlocks(model.TextBlockParam{Text: string(text)})
			req.System = &s
		}
	}
	var params sdk.MessageNewParams
	if err := reencode(req, &params); err != nil {
		return sdk.MessageNewParams{}, fmt.Errorf("anthropic: encode request: %w", err)
	}
	return params, nil
}

// ToSDKMessageParam converts a codec message parameter into its SDK
// counterpart.
func ToSDKMessageParam(p model.MessageParam) (sdk.MessageParam, error) {
	var out sdk.MessageParam
	if err := reencode(blockForm([]model.MessageParam{p})[0], &out); err != nil {
		return sdk.MessageParam{}, fmt.Errorf("anthropic: encode message: %w", err)
	}
	return out, nil
}

// DecodeMessage decodes the raw JSON the SDK received for msg.
func DecodeMessage(msg *sdk.Message) (model.Message, error) {
	if msg == nil {
		return model.Message{}, errors.New("anthropic: response message is nil")
	}
	raw := msg.RawJSON()
	if raw == "" {
		return model.Message{}, errors.New("anthropic: response message carries no raw JSON")
	}
	var out model.Message
	if err := jsonx.Unmarshal([]byte(raw), &out); err != nil {
		return model.Message{}, fmt.Errorf("anthropic: decode message: %w", err)
	}
	return out, nil
}

// blockForm returns a copy of msgs where string shorthands are replaced by
// block arrays, the only form the SDK param types accept.
func blockForm(msgs []model.MessageParam) []model.MessageParam {
	out := make([]model.MessageParam, len(msgs))
	for i, m := range msgs {
		blocks := slices.Clone(m.Content.Blocks())
		for j, b := range blocks {
			tr, ok := union.Pick[model.ToolResultBlockParam](b.Value)
			if !ok || tr.Content == nil {
				continue
			}
			text, ok := union.Pick[model.TextContent](tr.Content.Value)
			if !ok {
				continue
			}
			if text == "" {
				tr.Content = nil
			} else {
				c := model.NewToolResultBlocks(model.NewTextBlockParam(string(text)))
				tr.Content = &c
			}
			blocks[j] = model.NewContentBlockParam(tr)
		}
		out[i] = model.MessageParam{Role: m.Role, Content: model.NewMessageBlocks(blocks...)}
	}
	return out
}

// reencode marshals v with the codec and decodes the result into the SDK
// type pointed to by dst. SDK params implement json.Unmarshaler so the
// standard decoder is used for the second half.
func reencode(v any, dst any) error {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// streamErrorPrefix is how ssestream reports an "error" event.
const streamErrorPrefix = "received error while streaming: "

// translateError converts SDK failures that carry an API error payload into
// *model.APIError. Other errors are wrapped unchanged.
func translateError(op string, err error) error {
	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) {
		if apiErr, perr := model.ParseAPIError(sdkErr.StatusCode, []byte(sdkErr.RawJSON())); perr == nil {
			if apiErr.RequestID == "" {
				apiErr.RequestID = sdkErr.RequestID
			}
			return fmt.Errorf("%s: %w", op, apiErr)
		}
	}
	if payload, ok := strings.CutPrefix(err.Error(), streamErrorPrefix); ok {
		if apiErr, perr := model.ParseAPIError(0, []byte(payload)); perr == nil {
			return fmt.Errorf("%s: %w", op, apiErr)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
