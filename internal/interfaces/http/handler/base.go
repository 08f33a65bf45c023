package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// retryable is implemented by errors the client may safely retry
type retryable interface {
	Retryable() bool
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.ErrorWithCode(c, shared.CodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// BindError reports a failed ShouldBind* call. Validator failures get
// per-field details; anything else is malformed input.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		h.ValidationError(c, details)
		return
	}
	h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON for this endpoint")
}

// HandleError converts an application error to an HTTP response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.FromContext(c.Request.Context()).Error("Unhandled error",
			zap.Error(err),
			zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.ErrCodeInternal,
			"An unexpected error occurred",
			requestID,
		))
		return
	}

	resp := dto.NewErrorResponse(domainErr.Code, domainErr.Message, requestID)

	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		resp = resp.WithDetails(stockErr.Shortages)
	}
	var r retryable
	if errors.As(err, &r) && r.Retryable() {
		resp = resp.WithRetryable(true)
	}

	status := dto.GetHTTPStatus(domainErr.Code)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Warn("Request failed",
			zap.String("code", domainErr.Code),
			zap.Error(err))
	}
	c.JSON(status, resp)
}

// principal returns the authenticated caller or writes a 401
func (h *BaseHandler) principal(c *gin.Context) (identity.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return p, ok
}

// uuidParam parses a UUID path parameter or writes a 400
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
