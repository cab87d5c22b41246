// Package bedrock sends codec requests to Claude models hosted on AWS Bedrock
// through the InvokeModel APIs. Bedrock accepts the Anthropic Messages body
// with the model moved to the request path and an anthropic_version field,
// and streams the same events wrapped in event-stream chunks, so responses
// are decoded by the codec unchanged.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

// AnthropicVersion is the body version Bedrock requires for Claude models.
const AnthropicVersion = "bedrock-2023-05-31"

const contentTypeJSON = "application/json"

type (
	// RuntimeClient mirrors the subset of the Bedrock runtime client used by
	// the bridge. Use NewRuntime to adapt a *bedrockruntime.Client.
	RuntimeClient interface {
		InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
		InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (StreamOutput, error)
	}

	// StreamOutput is the subset of the AWS stream output used by the bridge.
	// It is satisfied by *bedrockruntime.InvokeModelWithResponseStreamOutput.
	StreamOutput interface {
		GetStream() *bedrockruntime.InvokeModelWithResponseStreamEventStream
	}

	// Options configures the Bedrock bridge.
	Options struct {
		// DefaultModel is the model or inference profile identifier used when
		// a request leaves Model empty.
		DefaultModel string

		// MaxTokens is used when a request leaves MaxTokens unset.
		MaxTokens int

		// Strict rejects content and stream events whose type the codec does
		// not know.
		Strict bool

		// Logger and Metrics default to no-op implementations.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
	}

	// Client sends codec requests to Bedrock.
	Client struct {
		runtime      RuntimeClient
		defaultModel string
		maxTok       int
		strict       bool
		logger       telemetry.Logger
		metrics      telemetry.Metrics
	}

	runtimeAdapter struct {
		c *bedrockruntime.Client
	}
)

// MetricRequestDuration records the latency of InvokeModel calls.
const MetricRequestDuration = "bedrock.request.duration"

// NewRuntime adapts an AWS Bedrock runtime client to RuntimeClient.
func NewRuntime(c *bedrockruntime.Client) RuntimeClient {
	return runtimeAdapter{c: c}
}

func (a runtimeAdapter) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return a.c.InvokeModel(ctx, params, optFns...)
}

func (a runtimeAdapter) InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (StreamOutput, error) {
	return a.c.InvokeModelWithResponseStream(ctx, params, optFns...)
}

// New builds a Bedrock-backed client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock runtime client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Client{
		runtime:      runtime,
		defaultModel: opts.DefaultModel,
		maxTok:       opts.MaxTokens,
		strict:       opts.Strict,
		logger:       logger,
		metrics:      metrics,
	}, nil
}

// Complete invokes the model and decodes the response body.
func (c *Client) Complete(ctx context.Context, req model.MessageRequest) (model.Message, error) {
	modelID, body, err := c.prepare(req)
	if err != nil {
		return model.Message{}, err
	}
	start := time.Now()
	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	c.metrics.RecordTimer(MetricRequestDuration, time.Since(start), "op", "invoke")
	if err != nil {
		err = translateError("bedrock invoke model", err)
		c.logger.Error(ctx, "bedrock request failed", "model", modelID, "err", err)
		return model.Message{}, err
	}
	var msg model.Message
	if err := jsonx.Unmarshal(out.Body, &msg); err != nil {
		return model.Message{}, fmt.Errorf("bedrock: decode message: %w", err)
	}
	if c.strict {
		if err := msg.ValidateKnown(); err != nil {
			return model.Message{}, fmt.Errorf("bedrock: %w", err)
		}
	}
	return msg, nil
}

// Stream invokes the model with a streamed response.
func (c *Client) Stream(ctx context.Context, req model.MessageRequest) (*Stream, error) {
	modelID, body, err := c.prepare(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return nil, translateError("bedrock invoke model stream", err)
	}
	return newStream(out.GetStream(), c.strict, c.logger), nil
}

func (c *Client) prepare(req model.MessageRequest) (string, []byte, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTok
	}
	if err := req.Validate(); err != nil {
		return "", nil, fmt.Errorf("bedrock: %w", err)
	}
	body, err := EncodeBody(req)
	if err != nil {
		return "", nil, err
	}
	return req.Model, body, nil
}

// EncodeBody renders req as a Bedrock InvokeModel body: the model and stream
// fields are removed and anthropic_version is added.
func EncodeBody(req model.MessageRequest) ([]byte, error) {
	data, err := jsonx.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("bedrock: encode request: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := jsonx.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("bedrock: encode request: %w", err)
	}
	delete(fields, "model")
	delete(fields, "stream")
	fields["anthropic_version"] = json.RawMessage(`"` + AnthropicVersion + `"`)
	return jsonx.Marshal(fields)
}

// translateError maps AWS service errors onto *model.APIError so callers
// handle Bedrock and first-party failures alike. Errors without an AWS error
// code are wrapped unchanged.
func translateError(op string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var status int
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}
	var requestID string
	var awsErr *awshttp.ResponseError
	if errors.As(err, &awsErr) {
		requestID = awsErr.ServiceRequestID()
	}
	detail := errorDetail(apiErr.ErrorCode(), apiErr.ErrorMessage(), status)
	return fmt.Errorf("%s: %w", op, model.NewAPIError(detail, requestID, status))
}

func errorDetail(code, msg string, status int) model.APIErrorDetailVariant {
	switch code {
	case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
		return model.RateLimitError{Message: msg}
	case "AccessDeniedException":
		return model.PermissionError{Message: msg}
	case "UnrecognizedClientException", "ExpiredTokenException":
		return model.AuthenticationError{Message: msg}
	case "ValidationException":
		return model.InvalidRequestError{Message: msg}
	case "ResourceNotFoundException":
		return model.NotFoundError{Message: msg}
	case "ServiceUnavailableException", "ModelNotReadyException":
		return model.OverloadedError{Message: msg}
	case "InternalServerException", "ModelTimeoutException", "ModelErrorException", "ModelStreamErrorException":
		return model.InternalAPIError{Message: msg}
	}
	switch {
	case status == http.StatusTooManyRequests:
		return model.RateLimitError{Message: msg}
	case status == http.StatusUnauthorized:
		return model.AuthenticationError{Message: msg}
	case status == http.StatusForbidden:
		return model.PermissionError{Message: msg}
	case status >= http.StatusInternalServerError:
		return model.InternalAPIError{Message: msg}
	}
	return model.InvalidRequestError{Message: msg}
}
