package utils

import (
	"context"
	"shopease/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestNewMailer_SelectsProvider(t *testing.T) {
	log := zap.NewNop()

	assert.IsType(t, &PostmarkMailer{}, NewMailer("postmark", "pm", "", "shop@example.com", log))
	assert.IsType(t, &SendGridMailer{}, NewMailer("sendgrid", "", "sg", "shop@example.com", log))
	assert.IsType(t, LogMailer{}, NewMailer("log", "", "", "shop@example.com", log))
}

func TestLogMailer_Send(t *testing.T) {
	m := LogMailer{Log: zap.NewNop()}
	assert.NoError(t, m.Send(context.Background(), "ada@example.com", "hi", "<p>hi</p>"))
}

func TestPaymentReceipt(t *testing.T) {
	order := models.Order{ID: primitive.NewObjectID(), ProductName: "Runner", CustomerName: "Ada"}
	payment := models.Payment{Amount: 10, TransactionID: "pi_123"}

	subject, body := PaymentReceipt(order, payment)
	assert.Contains(t, subject, "Payment received")
	assert.Contains(t, body, "Dear Ada")
	assert.Contains(t, body, order.ID.Hex())
	assert.Contains(t, body, "$10.00")
	assert.Contains(t, body, "pi_123")
}

func TestPaymentReceipt_EscapesCustomerText(t *testing.T) {
	order := models.Order{
		ID:           primitive.NewObjectID(),
		ProductName:  "Kettle <b>50% off</b>",
		CustomerName: `<a href="https://evil.example/phish">Click to claim refund</a>`,
	}
	payment := models.Payment{Amount: 10, TransactionID: "pi_<script>"}

	_, body := PaymentReceipt(order, payment)
	assert.NotContains(t, body, "<a href")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<b>50%")
	assert.Contains(t, body, "Dear &lt;a href=&#34;https://evil.example/phish&#34;&gt;Click to claim refund&lt;/a&gt;,")
}
