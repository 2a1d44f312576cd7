package api

import (
	"errors"
	"net/http"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:     http.StatusBadRequest,
	services.KindAuthentication: http.StatusUnauthorized,
	services.KindConflict:       http.StatusConflict,
	services.KindNotFound:       http.StatusNotFound,
	services.KindIntegrity:      http.StatusInternalServerError,
	services.KindInternal:       http.StatusInternalServerError,
}

// respondServiceError writes an AccountError with the status its kind maps
// to. Causes of server faults are logged, never returned.
func respondServiceError(w http.ResponseWriter, initTime time.Time, err error) {
	var accErr *services.AccountError
	if !errors.As(err, &accErr) {
		logging.Error("Unclassified service error", "error", err.Error())
		common.RespondCodedError(w, initTime, http.StatusInternalServerError, constants.ErrCodeInternal, "Internal server error")
		return
	}

	status, ok := kindStatus[accErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		fields := []interface{}{"code", accErr.Code, "message", accErr.Message}
		if accErr.Err != nil {
			fields = append(fields, "cause", accErr.Err.Error())
		}
		logging.Error("Account operation failed", fields...)
	}

	common.RespondCodedError(w, initTime, status, accErr.Code, accErr.Message)
}
