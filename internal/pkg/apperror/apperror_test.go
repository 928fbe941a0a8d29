package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("upstream 500")
	err := Wrap(cause, http.StatusBadGateway, "HTTP error! status: 500")

	assert.Equal(t, "HTTP error! status: 500", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("list users: %w", err)
	assert.Equal(t, http.StatusBadGateway, StatusOf(wrapped))
	assert.Equal(t, "HTTP error! status: 500", MessageOf(wrapped))

	assert.Equal(t, http.StatusInternalServerError, StatusOf(cause))
	assert.Equal(t, "internal server error", MessageOf(cause))
	assert.Equal(t, http.StatusNotFound, StatusOf(New(http.StatusNotFound, "nope")))
}
