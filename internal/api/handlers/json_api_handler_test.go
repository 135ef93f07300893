package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/api/handlers"
	"omnichannel/inquiries/internal/services"
)

// --- Test Setup ---

func setupJsonApiRouter(inquiries services.IInquiryService, dispatcher services.IDispatchService, shutdownChan chan<- struct{}) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewJsonApiHandler(inquiries, dispatcher, shutdownChan, zap.NewNop())
	r := gin.New()
	r.POST("/api", handler.HandleRequest)
	return r
}

func callJsonApi(t *testing.T, router *gin.Engine, body string) handlers.JsonApiResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.JsonApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Tests ---

func TestJsonApiHandler_Ping(t *testing.T) {
	router := setupJsonApiRouter(new(MockInquiryService), new(MockDispatchService), make(chan struct{}, 1))

	resp := callJsonApi(t, router, `{"method":"ping"}`)

	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Data)
}

func TestJsonApiHandler_InvalidRequest(t *testing.T) {
	router := setupJsonApiRouter(new(MockInquiryService), new(MockDispatchService), make(chan struct{}, 1))

	resp := callJsonApi(t, router, `not json`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid JSON request format", resp.Error)

	resp = callJsonApi(t, router, `{"method":"dropDatabase"}`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown method: dropDatabase", resp.Error)
}

func TestJsonApiHandler_Shutdown(t *testing.T) {
	shutdownChan := make(chan struct{}, 1)
	router := setupJsonApiRouter(new(MockInquiryService), new(MockDispatchService), shutdownChan)

	resp := callJsonApi(t, router, `{"method":"shutdown"}`)
	assert.True(t, resp.Success)

	select {
	case <-shutdownChan:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// A second request while the first signal is pending must not block.
	shutdownChan <- struct{}{}
	resp = callJsonApi(t, router, `{"method":"shutdown"}`)
	assert.True(t, resp.Success)
}

func TestJsonApiHandler_UnlockAll(t *testing.T) {
	inquiries := new(MockInquiryService)
	inquiries.On("UnlockAll", mock.Anything).Return(int64(4), nil).Once()
	inquiries.On("UnlockAll", mock.Anything).Return(int64(0), errors.New("timeout")).Once()
	router := setupJsonApiRouter(inquiries, new(MockDispatchService), make(chan struct{}, 1))

	resp := callJsonApi(t, router, `{"method":"unlockAll"}`)
	assert.True(t, resp.Success)
	assert.Equal(t, float64(4), resp.Data)

	resp = callJsonApi(t, router, `{"method":"unlockAll"}`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Database error", resp.Error)
	inquiries.AssertExpectations(t)
}

func TestJsonApiHandler_Dispatch(t *testing.T) {
	dispatcher := new(MockDispatchService)
	dispatcher.On("DispatchNext", mock.Anything, "sales").Return(&services.DispatchResult{
		AgentID: "agent-1",
		Outcome: services.DispatchOutcomeTaken,
	}, nil)
	router := setupJsonApiRouter(new(MockInquiryService), dispatcher, make(chan struct{}, 1))

	resp := callJsonApi(t, router, `{"method":"dispatch","arguments":["sales"]}`)

	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "agent-1", data["agentId"])
	dispatcher.AssertExpectations(t)
}

func TestJsonApiHandler_Dispatch_BadArguments(t *testing.T) {
	dispatcher := new(MockDispatchService)
	router := setupJsonApiRouter(new(MockInquiryService), dispatcher, make(chan struct{}, 1))

	cases := map[string]string{
		"missing":    `{"method":"dispatch"}`,
		"not array":  `{"method":"dispatch","arguments":{"department":"sales"}}`,
		"empty":      `{"method":"dispatch","arguments":[]}`,
		"wrong type": `{"method":"dispatch","arguments":[42]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := callJsonApi(t, router, body)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
	dispatcher.AssertNotCalled(t, "DispatchNext", mock.Anything, mock.Anything)
}

func TestJsonApiHandler_Dispatch_Error(t *testing.T) {
	dispatcher := new(MockDispatchService)
	dispatcher.On("DispatchNext", mock.Anything, "").Return(nil, errors.New("claim failed"))
	router := setupJsonApiRouter(new(MockInquiryService), dispatcher, make(chan struct{}, 1))

	resp := callJsonApi(t, router, `{"method":"dispatch","arguments":[""]}`)

	assert.False(t, resp.Success)
	assert.Equal(t, "Dispatch failed", resp.Error)
	dispatcher.AssertExpectations(t)
}
