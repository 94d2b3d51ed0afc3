package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"shopease/services"
	"shopease/store"
	"shopease/utils"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{utils.ErrUnauthorized, http.StatusUnauthorized},
		{utils.ErrInvalidToken, http.StatusForbidden},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{store.ErrNotFound, http.StatusNotFound},
		{services.ErrInvalidID, http.StatusBadRequest},
		{services.ErrAmountMismatch, http.StatusBadRequest},
		{services.ErrAlreadyPaid, http.StatusBadRequest},
		{fmt.Errorf("%w: quantity must be positive", services.ErrValidation), http.StatusBadRequest},
		{services.ErrPaymentNotCaptured, http.StatusPaymentRequired},
		{fmt.Errorf("%w: E11000", store.ErrDuplicate), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesServerErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)

	writeError(rr, req, zap.New(core), fmt.Errorf("list orders: %w", errors.New("mongo: socket closed")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rr.Body.String())
	assert.Equal(t, 1, logs.Len())
}

func TestWriteError_ClientErrorMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", nil)

	writeError(rr, req, zap.NewNop(), services.ErrAmountMismatch)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"Amount does not match order total"}`, rr.Body.String())
}
