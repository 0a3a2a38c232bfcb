package sender

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"order-webhook-service/models"
)

const confirmationTemplate = `<html>
<body>
  <h2>Thank you for your order, {{.Order.CustomerName}}!</h2>
  <p>Order <strong>{{.Order.OrderNumber}}</strong> is confirmed and being prepared.</p>
  <table border="0" cellpadding="4">
    <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
    {{range .Items}}
    <tr>
      <td>{{.ProductName}}{{if .VariantName}} ({{.VariantName}}){{end}}</td>
      <td align="right">{{.Quantity}}</td>
      <td align="right">{{printf "%.2f" .TotalPrice}}</td>
    </tr>
    {{end}}
  </table>
  <p>Total: <strong>{{printf "%.2f" .Order.TotalAmount}} {{.Order.Currency}}</strong></p>
</body>
</html>`

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	tmpl     *template.Template
}

func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}

	tmpl, err := template.New("order_confirmation").Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}

	return &SMTPSender{host: host, port: port, username: username, password: password, tmpl: tmpl}, nil
}

func (s *SMTPSender) SendOrderConfirmation(ctx context.Context, order *models.Order, items []models.OrderItem) (SendResult, error) {
	if order.CustomerEmail == "" {
		return SendResult{}, fmt.Errorf("order %s has no customer email", order.ID)
	}

	var body bytes.Buffer
	data := struct {
		Order *models.Order
		Items []models.OrderItem
	}{Order: order, Items: items}
	if err := s.tmpl.Execute(&body, data); err != nil {
		return SendResult{}, fmt.Errorf("failed to render confirmation: %w", err)
	}

	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	msg := []byte(
		"From: " + s.username + "\r\n" +
			"To: " + order.CustomerEmail + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body.String(),
	)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.username, []string{order.CustomerEmail}, msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}

	return SendResult{
		MessageID: fmt.Sprintf("smtp-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}
