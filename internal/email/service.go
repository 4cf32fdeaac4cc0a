package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings read from SMTP_HOST, SMTP_PORT, SMTP_USERNAME,
// SMTP_PASSWORD and SMTP_FROM.
type Config struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"587"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM" default:"billing@clinic.local"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("SMTP", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load smtp config: %w", err)
	}
	return cfg, nil
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type ReceiptLine struct {
	Description string
	Quantity    int
	UnitPrice   float64
}

// Receipt is the content of an invoice-paid email.
type Receipt struct {
	To            string
	PatientName   string
	InvoiceID     string
	Items         []ReceiptLine
	Subtotal      float64
	Tax           float64
	Total         float64
	PaymentMethod string
	PaidAt        time.Time
}

type Service interface {
	SendReceipt(ctx context.Context, receipt Receipt) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	from   string
	dialer dialer
}

// NewService returns an SMTP mailer, or a no-op mailer when no host is
// configured.
func NewService(cfg Config) Service {
	if !cfg.Enabled() {
		return noopService{}
	}
	return &smtpService{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendReceipt(ctx context.Context, receipt Receipt) error {
	if strings.TrimSpace(receipt.To) == "" {
		return fmt.Errorf("receipt recipient is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", receipt.To)
	msg.SetHeader("Subject", fmt.Sprintf("Payment receipt %s", receipt.InvoiceID))
	msg.SetBody("text/plain", receiptBody(receipt))

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send receipt: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receiptBody(r Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", r.PatientName)
	fmt.Fprintf(&b, "We received your payment for invoice %s on %s.\n\n",
		r.InvoiceID, r.PaidAt.Format("Jan 02, 2006 3:04 PM"))
	for _, line := range r.Items {
		fmt.Fprintf(&b, "  %-30s %3d x %10.2f\n", line.Description, line.Quantity, line.UnitPrice)
	}
	fmt.Fprintf(&b, "\nSubtotal: %.2f\nTax: %.2f\nTotal: %.2f\n", r.Subtotal, r.Tax, r.Total)
	if r.PaymentMethod != "" {
		fmt.Fprintf(&b, "Paid by: %s\n", r.PaymentMethod)
	}
	return b.String()
}

type noopService struct{}

func (noopService) SendReceipt(context.Context, Receipt) error { return nil }
