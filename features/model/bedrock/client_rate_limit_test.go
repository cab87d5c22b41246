package bedrock

import (
	"context"
	"errors"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

type errorRuntimeClient struct {
	invokeErr error
	streamErr error
}

func (e *errorRuntimeClient) InvokeModel(
	_ context.Context,
	_ *bedrockruntime.InvokeModelInput,
	_ ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	return nil, e.invokeErr
}

func (e *errorRuntimeClient) InvokeModelWithResponseStream(
	_ context.Context,
	_ *bedrockruntime.InvokeModelWithResponseStreamInput,
	_ ...func(*bedrockruntime.Options),
) (StreamOutput, error) {
	return nil, e.streamErr
}

func awsError(status int, requestID string, err error) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      err,
		},
		RequestID: requestID,
	}
}

func TestComplete_TranslatesThrottling(t *testing.T) {
	rt := &errorRuntimeClient{
		invokeErr: awsError(429, "aws-req-1", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Too many requests"}),
	}
	client := &Client{runtime: rt, defaultModel: "test-model", maxTok: 10, logger: telemetry.NewNoopLogger(), metrics: telemetry.NewNoopMetrics()}
	_, err := client.Complete(context.Background(), model.MessageRequest{
		Messages: []model.MessageParam{{Role: model.RoleUser, Content: model.NewMessageText("hello")}},
	})
	apiErr, ok := model.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrorKindRateLimited, apiErr.Kind())
	require.True(t, apiErr.Retryable())
	require.Equal(t, 429, apiErr.HTTPStatus)
	require.Equal(t, "aws-req-1", apiErr.RequestID)
	require.Equal(t, "Too many requests", apiErr.Message())
	require.ErrorContains(t, err, "bedrock invoke model: ")
}

func TestStream_TranslatesModeledExceptions(t *testing.T) {
	msg := "Access denied"
	rt := &errorRuntimeClient{streamErr: awsError(403, "", &brtypes.AccessDeniedException{Message: &msg})}
	client := &Client{runtime: rt, defaultModel: "test-model", maxTok: 10, logger: telemetry.NewNoopLogger(), metrics: telemetry.NewNoopMetrics()}
	_, err := client.Stream(context.Background(), model.MessageRequest{
		Messages: []model.MessageParam{{Role: model.RoleUser, Content: model.NewMessageText("hello")}},
	})
	apiErr, ok := model.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, "permission_error", apiErr.Type())
	require.Equal(t, model.ErrorKindAuth, apiErr.Kind())
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		code   string
		status int
		typ    string
	}{
		{code: "ValidationException", status: 400, typ: "invalid_request_error"},
		{code: "ResourceNotFoundException", status: 404, typ: "not_found_error"},
		{code: "ServiceUnavailableException", status: 503, typ: "overloaded_error"},
		{code: "ModelTimeoutException", status: 408, typ: "api_error"},
		{code: "UnrecognizedClientException", status: 403, typ: "authentication_error"},
		{code: "SomethingNew", status: 502, typ: "api_error"},
		{code: "SomethingElse", status: 401, typ: "authentication_error"},
		{code: "SomethingElse", status: 400, typ: "invalid_request_error"},
	}
	for _, tt := range cases {
		t.Run(tt.code, func(t *testing.T) {
			err := translateError("op", awsError(tt.status, "", &smithy.GenericAPIError{Code: tt.code, Message: "m"}))
			apiErr, ok := model.AsAPIError(err)
			require.True(t, ok)
			require.Equal(t, tt.typ, apiErr.Type())
		})
	}

	plain := errors.New("dial tcp: timeout")
	err := translateError("op", plain)
	require.ErrorIs(t, err, plain)
	_, ok := model.AsAPIError(err)
	require.False(t, ok)
}
