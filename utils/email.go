// utils/email.go
package utils

import (
	"context"
	"fmt"
	"html/template"
	"shopease/models"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends transactional email
type Mailer interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// PostmarkMailer sends email through Postmark
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

// NewPostmarkMailer creates a Postmark-backed mailer
func NewPostmarkMailer(apiToken, from string) *PostmarkMailer {
	return &PostmarkMailer{client: postmark.NewClient(apiToken, ""), from: from}
}

// Send sends an email to the specified recipient
func (m *PostmarkMailer) Send(_ context.Context, toEmail, subject, htmlContent string) error {
	_, err := m.client.SendEmail(postmark.Email{
		From:     m.from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	return nil
}

// SendGridMailer sends email through SendGrid
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer creates a SendGrid-backed mailer
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: mail.NewEmail("ShopEase", from)}
}

// Send sends an email to the specified recipient
func (m *SendGridMailer) Send(_ context.Context, toEmail, subject, htmlContent string) error {
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", toEmail), htmlContent, htmlContent)
	resp, err := m.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs outgoing mail. Used when no provider is configured.
type LogMailer struct {
	Log *zap.Logger
}

// Send logs the email instead of delivering it
func (m LogMailer) Send(_ context.Context, toEmail, subject, _ string) error {
	m.Log.Info("email not delivered (no mail provider)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return nil
}

// NewMailer picks the mail provider by name: "postmark", "sendgrid", or anything else for LogMailer.
func NewMailer(provider, postmarkToken, sendgridKey, from string, log *zap.Logger) Mailer {
	switch provider {
	case "postmark":
		return NewPostmarkMailer(postmarkToken, from)
	case "sendgrid":
		return NewSendGridMailer(sendgridKey, from)
	default:
		return LogMailer{Log: log}
	}
}

// PaymentReceipt renders the receipt email sent once an order is paid.
// Customer supplied text is HTML-escaped.
func PaymentReceipt(order models.Order, payment models.Payment) (subject, htmlContent string) {
	subject = "Payment received - ShopEase"
	name := order.CustomerName
	if name == "" {
		name = "Customer"
	}
	htmlContent = fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>We received your payment for order %s.<br><br>Product: <strong>%s</strong><br>Amount: <strong>$%.2f</strong><br>Transaction: %s<br><br>Thank you for shopping with us!",
		template.HTMLEscapeString(name),
		order.ID.Hex(),
		template.HTMLEscapeString(order.ProductName),
		payment.Amount,
		template.HTMLEscapeString(payment.TransactionID),
	)
	return subject, htmlContent
}
