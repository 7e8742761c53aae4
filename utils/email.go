package utils

import (
	"fmt"
	"strings"

	"go-storefront/models"

	"github.com/keighl/postmark"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers one email.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// EmailService renders storefront emails and hands them to a Sender
type EmailService struct {
	sender Sender
	logger zerolog.Logger
}

// NewEmailService picks the provider by name: "postmark", "sendgrid", or anything else to only log.
func NewEmailService(provider, from, postmarkToken, sendgridKey string, logger zerolog.Logger) (*EmailService, error) {
	var sender Sender
	switch strings.ToLower(provider) {
	case "postmark":
		if postmarkToken == "" {
			return nil, fmt.Errorf("POSTMARK_API_TOKEN is not set")
		}
		sender = &PostmarkSender{client: postmark.NewClient(postmarkToken, ""), from: from}
	case "sendgrid":
		if sendgridKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is not set")
		}
		sender = &SendGridSender{client: sendgrid.NewSendClient(sendgridKey), from: from}
	default:
		sender = &LogSender{logger: logger}
	}
	return &EmailService{sender: sender, logger: logger}, nil
}

func NewEmailServiceWith(sender Sender, logger zerolog.Logger) *EmailService {
	return &EmailService{sender: sender, logger: logger}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent, textContent string) error {
	if err := es.sender.Send(toEmail, subject, htmlContent, textContent); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	es.logger.Debug().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	return nil
}

// SendOrderConfirmationEmail sends an order confirmation email to the customer
func (es *EmailService) SendOrderConfirmationEmail(order models.Order) error {
	subject := fmt.Sprintf("Order Confirmation %s", order.OrderNumber)
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order <strong>%s</strong> has been placed.<br><br>Subtotal: $%.2f<br>Shipping: $%.2f<br>Tax: $%.2f<br>Total: <strong>$%.2f</strong><br><br>Thank you for shopping with us!",
		order.Customer.DisplayName, order.OrderNumber, order.Subtotal, order.Shipping, order.Tax, order.TotalAmount,
	)
	textContent := fmt.Sprintf(
		"Dear %s,\n\nThank you for your purchase! Your order %s has been placed.\n\nTotal: $%.2f\n\nThank you for shopping with us!\n",
		order.Customer.DisplayName, order.OrderNumber, order.TotalAmount,
	)
	return es.SendEmail(order.Customer.Email, subject, htmlContent, textContent)
}

// SendStatusUpdateEmail tells the customer about a status change
func (es *EmailService) SendStatusUpdateEmail(order models.Order) error {
	subject := fmt.Sprintf("Order %s is now %s", order.OrderNumber, strings.ReplaceAll(string(order.Status), "_", " "))
	content := fmt.Sprintf("Dear %s,\n\nYour order %s status has been updated to '%s'.\n\nThank you for shopping with us!\n",
		order.Customer.DisplayName, order.OrderNumber, order.Status)
	return es.SendEmail(order.Customer.Email, subject, content, content)
}

type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func (p *PostmarkSender) Send(to, subject, htmlBody, textBody string) error {
	_, err := p.client.SendEmail(postmark.Email{
		From:     p.from,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	return err
}

type SendGridSender struct {
	client *sendgrid.Client
	from   string
}

func (s *SendGridSender) Send(to, subject, htmlBody, textBody string) error {
	message := mail.NewSingleEmail(mail.NewEmail("", s.from), subject, mail.NewEmail("", to), textBody, htmlBody)
	resp, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogSender only logs the message. Used when no provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

func (l *LogSender) Send(to, subject, _, _ string) error {
	l.logger.Info().Str("to", to).Str("subject", subject).Msg("email delivery disabled, message not sent")
	return nil
}
