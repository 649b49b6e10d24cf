package handlers

import (
	"errors"
	"net/http"

	"evotree-backend/pkg/common"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/utils"

	"go.uber.org/zap"
)

// base carries what every handler needs to read requests and write responses
type base struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// decode parses and validates a JSON body. Failures are written to w.
func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v); err != nil {
		b.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		appErr := pkgerrors.NewValidationError(err.Error())
		var fields utils.FieldErrors
		if errors.As(err, &fields) {
			appErr.WithDetails(fields.Details())
		}
		b.errors.Handle(w, r, appErr)
		return false
	}
	return true
}

func (b base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}
