package http

import (
	"errors"
	"net/http"

	"github.com/nekogravitycat/user-directory/internal/fetch"
	"github.com/nekogravitycat/user-directory/internal/pkg/apperror"
	"github.com/nekogravitycat/user-directory/internal/user"
	"github.com/nekogravitycat/user-directory/internal/view"
)

var errViewNotFound = apperror.New(http.StatusNotFound, "view not found")

// toAppError maps domain and upstream failures to HTTP errors.
func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, user.ErrNotFound):
		return apperror.Wrap(err, http.StatusNotFound, "user not found")
	case errors.Is(err, user.ErrInvalidID):
		return apperror.Wrap(err, http.StatusBadRequest, err.Error())
	case errors.Is(err, view.ErrSessionNotFound):
		return apperror.Wrap(err, http.StatusNotFound, errViewNotFound.Message)
	case fetch.IsTimeout(err):
		return apperror.Wrap(err, http.StatusGatewayTimeout, err.Error())
	}

	var fe *fetch.Error
	if errors.As(err, &fe) {
		return apperror.Wrap(err, http.StatusBadGateway, fe.Error())
	}
	return apperror.Wrap(err, http.StatusInternalServerError, "internal server error")
}
