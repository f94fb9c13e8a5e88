package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/response"
)

type validationBody struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// writeError maps layer errors onto envelope responses. Unknown errors are
// logged and reported without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Envelope{
			Status: http.StatusBadRequest,
			Data:   validationBody{Error: "validation failed", Fields: verr.Fields},
		})
	case errors.Is(err, errs.ErrValidation):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, errs.ErrForbidden):
		response.Error(c, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, errs.ErrAlreadyExists):
		response.Error(c, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
