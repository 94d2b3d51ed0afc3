package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"shopease/middleware"
	"shopease/services"
	"shopease/store"
	"shopease/utils"
	"strings"

	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads a single JSON object from the request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, utils.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrInvalidToken), errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPaymentNotCaptured):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the status for err. Server errors are logged and
// their details are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, status, "Internal server error")
		return
	}
	writeMessage(w, status, message(err))
}

// message capitalises the error text for the response body
func message(err error) string {
	if errors.Is(err, store.ErrDuplicate) {
		return "Already exists"
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// actor builds the service actor from the request's claims
func actor(r *http.Request) services.Actor {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return services.Actor{}
	}
	return services.Actor{Email: claims.Email, Admin: claims.IsAdmin()}
}
