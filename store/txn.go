package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxManager runs multi-document writes inside a MongoDB transaction.
//
// A standalone mongod cannot run transactions. In that case the function is
// run without a session and callers are expected to compensate on failure;
// InTransaction tells them which mode they are in.
type TxManager struct {
	client *mongo.Client
	log    *zap.Logger
}

// NewTxManager creates a TxManager for client.
func NewTxManager(client *mongo.Client, log *zap.Logger) *TxManager {
	return &TxManager{client: client, log: log}
}

// WithinTx runs fn in a transaction, falling back to a plain run when the
// deployment does not support transactions.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			m.log.Warn("sessions not supported, running without transaction", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		m.log.Warn("transactions not supported, running without transaction", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// InTransaction reports whether ctx belongs to a transaction started by WithinTx.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	return InTransaction(ctx)
}

// InTransaction reports whether ctx carries an active session.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions (standalone server, old version).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, NotAReplicaSet-ish, OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "transaction") && !strings.Contains(msg, "session") {
		return false
	}
	for _, hint := range []string{"replica set", "not supported", "illegal operation"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return strings.Contains(msg, "transaction") && strings.Contains(msg, "session")
}
