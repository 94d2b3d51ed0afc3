package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("boom"), false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 263", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"unrelated code", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"replica set message", errors.New("transaction failed: not a replica set member"), true},
		{"session not supported", errors.New("Session operations are not supported on this server"), true},
		{"only transaction keyword", errors.New("transaction failed"), false},
		{"wrapped command error", errors.Join(errors.New("insert order"), mongo.CommandError{Code: 20}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotSupported(tt.err))
		})
	}
}

func TestInTransaction_PlainContext(t *testing.T) {
	assert.False(t, InTransaction(context.Background()))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	assert.ErrorIs(t, translate(dup), ErrDuplicate)

	other := errors.New("socket closed")
	assert.Equal(t, other, translate(other))
}
