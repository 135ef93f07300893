package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/services"
)

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

// apiMethodFunc defines the signature for handler methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// JsonApiHandler serves the operator-only service API. It listens on the
// service port and carries no authentication of its own.
type JsonApiHandler struct {
	inquiries    services.IInquiryService
	dispatcher   services.IDispatchService
	shutdownChan chan<- struct{}
	logger       *zap.Logger
	methods      map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the service JSON API endpoint.
func NewJsonApiHandler(inquiries services.IInquiryService, dispatcher services.IDispatchService, shutdownChan chan<- struct{}, logger *zap.Logger) *JsonApiHandler {
	h := &JsonApiHandler{
		inquiries:    inquiries,
		dispatcher:   dispatcher,
		shutdownChan: shutdownChan,
		logger:       logger,
	}
	h.methods = map[string]apiMethodFunc{
		"ping":      h.ping,
		"shutdown":  h.shutdown,
		"unlockAll": h.unlockAll,
		"dispatch":  h.dispatch,
	}
	return h
}

// HandleRequest handles POST /api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	var req JsonApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, "Invalid JSON request format")
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, fmt.Sprintf("Unknown method: %s", req.Method))
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, apiErr.Message)
		return
	}
	h.sendSuccessResponse(c, result)
}

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: message})
}

func (h *JsonApiHandler) parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	var argArray []json.RawMessage
	if rawArgPayload == nil { // 'arguments' field was not provided
		return NewApiError("Missing 'arguments' field; expected a JSON array with one argument.")
	}

	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}

	if len(argArray) == 0 {
		return NewApiError("Invalid 'arguments': array is empty, but one argument is expected.")
	}

	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return "pong", nil
}

func (h *JsonApiHandler) shutdown(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	h.logger.Info("received shutdown command via service API")
	select {
	case h.shutdownChan <- struct{}{}:
	default:
		h.logger.Info("shutdown already signaled")
	}
	return "Shutdown initiated", nil
}

func (h *JsonApiHandler) unlockAll(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	released, err := h.inquiries.UnlockAll(c.Request.Context())
	if err != nil {
		h.logger.Error("service API unlockAll failed", zap.Error(err))
		return nil, NewApiError("Database error")
	}
	return released, nil
}

// dispatch runs one dispatch attempt for the department given as the single argument.
func (h *JsonApiHandler) dispatch(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var department string
	if apiErr := h.parseRequiredSingleArgFromArray(args, &department); apiErr != nil {
		return nil, apiErr
	}
	result, err := h.dispatcher.DispatchNext(c.Request.Context(), department)
	if err != nil {
		h.logger.Error("service API dispatch failed", zap.String("department", department), zap.Error(err))
		return nil, NewApiError("Dispatch failed")
	}
	return result, nil
}
