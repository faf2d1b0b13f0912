package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/observability/metrics"
	"github.com/yourorg/tourbook/pkg/config"
)

// QuoteService sends the two-email fan-out for a quote request: an internal
// notification to the sales inbox and a confirmation to the customer.
type QuoteService struct {
	mailer domain.Mailer
	logger *slog.Logger
	config *config.Config
}

// NewQuoteService creates a new quote service.
func NewQuoteService(mailer domain.Mailer, logger *slog.Logger, cfg *config.Config) *QuoteService {
	return &QuoteService{mailer: mailer, logger: logger, config: cfg}
}

// QuoteInput is a validated quote request. TourName is empty for a custom
// tour request, in which case Details carries the customer's itinerary.
type QuoteInput struct {
	Name     string
	Email    string
	Phone    string
	TourName string
	Date     string
	People   int
	Details  string
}

// Validate checks the input shape without sending anything.
func (in *QuoteInput) Validate() *domain.ValidationError {
	var fields []domain.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "required"})
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		fields = append(fields, domain.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if in.People < 1 {
		fields = append(fields, domain.FieldError{Field: "people", Message: "must be at least 1"})
	}
	if in.TourName == "" && strings.TrimSpace(in.Details) == "" {
		fields = append(fields, domain.FieldError{Field: "details", Message: "required for a custom tour request"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// Send delivers both emails. The admin notification is the one the business
// depends on, so its failure fails the request; a failed customer
// confirmation is logged and reported as non-fatal.
func (s *QuoteService) Send(ctx context.Context, in QuoteInput) (customerNotified bool, err error) {
	if verr := in.Validate(); verr != nil {
		return false, verr
	}

	subjectTour := in.TourName
	if subjectTour == "" {
		subjectTour = "custom tour"
	}
	from := fmt.Sprintf("Reservas <reservas@%s>", s.config.SiteDomain)

	adminMsg := &domain.EmailMessage{
		From:    from,
		To:      s.config.AdminEmail,
		Subject: fmt.Sprintf("Quote request: %s (%d people)", subjectTour, in.People),
		HTML:    adminQuoteHTML(in),
	}
	if _, err := s.mailer.Send(ctx, adminMsg); err != nil {
		metrics.ObserveEmail("quote_admin", "error")
		return false, &StepError{Step: "admin_email", Err: err}
	}
	metrics.ObserveEmail("quote_admin", "success")

	customerMsg := &domain.EmailMessage{
		From:    from,
		To:      in.Email,
		Subject: fmt.Sprintf("We received your request for %s", subjectTour),
		HTML:    customerQuoteHTML(in, subjectTour),
	}
	if _, err := s.mailer.Send(ctx, customerMsg); err != nil {
		metrics.ObserveEmail("quote_customer", "error")
		s.logger.Warn("customer confirmation email failed",
			slog.String("email", in.Email),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	metrics.ObserveEmail("quote_customer", "success")
	return true, nil
}

func adminQuoteHTML(in QuoteInput) string {
	var b strings.Builder
	b.WriteString("<h2>New quote request</h2><ul>")
	fmt.Fprintf(&b, "<li>Name: %s</li>", in.Name)
	fmt.Fprintf(&b, "<li>Email: %s</li>", in.Email)
	fmt.Fprintf(&b, "<li>Phone: %s</li>", in.Phone)
	if in.TourName != "" {
		fmt.Fprintf(&b, "<li>Tour: %s</li>", in.TourName)
	} else {
		b.WriteString("<li>Tour: custom</li>")
	}
	fmt.Fprintf(&b, "<li>Date: %s</li>", in.Date)
	fmt.Fprintf(&b, "<li>People: %d</li>", in.People)
	if in.Details != "" {
		fmt.Fprintf(&b, "<li>Details: %s</li>", in.Details)
	}
	b.WriteString("</ul>")
	return b.String()
}

func customerQuoteHTML(in QuoteInput, subjectTour string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", in.Name)
	fmt.Fprintf(&b, "<p>We received your request for <strong>%s</strong> and will get back to you shortly.</p>", subjectTour)
	b.WriteString("<p>Thank you for choosing us.</p>")
	return b.String()
}
