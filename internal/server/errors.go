package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	inventorydomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

var validationErrs = []error{
	orderdomain.ErrInvalidID,
	orderdomain.ErrInvalidUser,
	orderdomain.ErrInvalidAmount,
	orderdomain.ErrInvalidPageToken,
	orderdomain.ErrItemInactive,
	catalogdomain.ErrInvalidName,
	catalogdomain.ErrInvalidKind,
	catalogdomain.ErrInvalidID,
	inventorydomain.ErrEmptyBatch,
	riskdomain.ErrInvalidDenylistType,
	riskdomain.ErrInvalidDenylistValue,
	riskdomain.ErrInvalidThresholds,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var notFoundErrs = []error{
	orderdomain.ErrNotFound,
	orderdomain.ErrItemNotFound,
	catalogdomain.ErrNotFound,
	inventorydomain.ErrUnitNotFound,
	inventorydomain.ErrItemNotFound,
	riskdomain.ErrDenylistNotFound,
	riskdomain.ErrAssessmentNotFound,
	fulfillmentdomain.ErrOrderNotFound,
	fulfillmentdomain.ErrDeliveryNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrs = []error{
	catalogdomain.ErrSlugTaken,
	inventorydomain.ErrUnitConflict,
	inventorydomain.ErrUnitAssigned,
	riskdomain.ErrDenylistDuplicate,
	fulfillmentdomain.ErrOrderNotPaid,
	fulfillmentdomain.ErrAlreadyDelivered,
	fulfillmentdomain.ErrDeliveryCancelled,
	fulfillmentdomain.ErrNotHeld,
	fulfillmentdomain.ErrNotVerification,
	fulfillmentdomain.ErrInvalidTransition,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: target.Error(),
			}
		}
	}

	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return http.StatusNotFound, errorPayload{
				Type:    "not_found",
				Message: target.Error(),
			}
		}
	}

	if errors.Is(err, inventorydomain.ErrOutOfStock) {
		return http.StatusConflict, errorPayload{
			Type:    "out_of_stock",
			Message: "no stock available",
		}
	}

	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return http.StatusConflict, errorPayload{
				Type:    "conflict",
				Message: target.Error(),
			}
		}
	}

	if errors.Is(err, fulfillmentdomain.ErrPolicy) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "policy_violation",
			Message: "operation rejected by policy",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}
