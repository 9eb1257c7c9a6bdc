package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"game-session-engine/services"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInsufficientCredit, http.StatusPaymentRequired, CodeInsufficientCredit},
		{fmt.Errorf("wrapped: %w", services.ErrIllegalMove), http.StatusUnprocessableEntity, CodeIllegalMove},
		{services.ErrNotYourTurn, http.StatusUnprocessableEntity, CodeIllegalMove},
		{services.ErrSessionNotActive, http.StatusConflict, CodeSessionNotActive},
		{services.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{services.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{services.ErrInvalidAmount, http.StatusBadRequest, CodeBadRequest},
		{services.ErrInvalidDifficulty, http.StatusBadRequest, CodeBadRequest},
		{services.ErrCorruptState, http.StatusInternalServerError, CodeCorruptState},
		{errors.New("connection refused"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
