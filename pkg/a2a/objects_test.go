package a2a

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{name: "text", json: `{"type":"text","text":"hi"}`},
		{name: "empty text", json: `{"type":"text","text":""}`},
		{name: "file bytes", json: `{"type":"file","file":{"bytes":"aGk="}}`},
		{name: "file uri", json: `{"type":"file","file":{"uri":"https://example.com/a.txt"}}`},
		{name: "data", json: `{"type":"data","data":{"a":1}}`},
		{name: "text missing", json: `{"type":"text"}`, wantErr: "missing 'text'"},
		{name: "file missing", json: `{"type":"file"}`, wantErr: "missing 'file'"},
		{name: "file both", json: `{"type":"file","file":{"bytes":"aGk=","uri":"x"}}`, wantErr: "not both"},
		{name: "data missing", json: `{"type":"data"}`, wantErr: "missing 'data'"},
		{name: "unknown", json: `{"type":"video"}`, wantErr: "unknown part type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Part
			err := json.Unmarshal([]byte(tt.json), &p)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestArtifactText(t *testing.T) {
	task := &Task{
		Artifacts: []Artifact{
			{Parts: []Part{NewTextPart("a"), NewDataPart(map[string]any{"x": 1}), NewTextPart("b")}},
			{Parts: []Part{NewFilePart(FileContent{})}},
			{Parts: []Part{NewTextPart("c")}},
		},
	}
	assert.Equal(t, "abc", task.ArtifactText())

	var none *Task
	assert.Equal(t, "", none.ArtifactText())
	assert.Equal(t, "", (&Task{}).ArtifactText())
}

func TestAgentCardValidate(t *testing.T) {
	assert.NoError(t, (&AgentCard{Name: "a", URL: "http://x"}).Validate())
	assert.Error(t, (&AgentCard{URL: "http://x"}).Validate())
	assert.Error(t, (&AgentCard{Name: "a"}).Validate())
}

func TestTaskStateIsTerminal(t *testing.T) {
	for state, terminal := range map[TaskState]bool{
		TaskStateSubmitted:     false,
		TaskStateWorking:       false,
		TaskStateInputRequired: false,
		TaskStateCompleted:     true,
		TaskStateCanceled:      true,
		TaskStateFailed:        true,
	} {
		assert.Equal(t, terminal, state.IsTerminal(), string(state))
	}
}

func TestStreamingResponseUnmarshal(t *testing.T) {
	var status SendTaskStreamingResponse
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":{"id":"t","status":{"state":"completed"},"final":true}}`), &status))
	require.NotNil(t, status.GetStatusUpdate())
	assert.Nil(t, status.GetArtifactUpdate())
	assert.True(t, status.GetStatusUpdate().Final)

	var artifact SendTaskStreamingResponse
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":{"id":"t","artifact":{"parts":[{"type":"text","text":"x"}]}}}`), &artifact))
	require.NotNil(t, artifact.GetArtifactUpdate())
	assert.Equal(t, "x", artifact.GetArtifactUpdate().Artifact.Text())

	var failed SendTaskStreamingResponse
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"Internal error"}}`), &failed))
	assert.Nil(t, failed.Result)
	require.NotNil(t, failed.Error)

	var unknown SendTaskStreamingResponse
	assert.Error(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":{"id":"t"}}`), &unknown))
}

func TestToJSONRPCError(t *testing.T) {
	assert.Nil(t, ToJSONRPCError(nil))

	tests := []struct {
		err  error
		code int
	}{
		{NewTaskNotFoundError("t"), CodeTaskNotFound},
		{NewTaskNotCancelableError("t"), CodeTaskNotCancelable},
		{NewMethodNotFoundError("x"), CodeMethodNotFound},
		{NewInvalidParamsError("bad"), CodeInvalidParams},
		{NewUnsupportedOperationError("op"), CodeUnsupportedOperation},
		{NewPushNotificationNotSupportedError(), CodePushNotificationNotSupported},
		{fmt.Errorf("wrapped: %w", NewJSONParseError("x")), CodeJSONParse},
		{&JSONRPCError{Code: -1, Message: "custom"}, -1},
		{errors.New("plain"), CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, ToJSONRPCError(tt.err).Code, tt.err.Error())
	}
}
