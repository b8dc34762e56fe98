package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// SendRequest contains the data needed to send one e-mail
type SendRequest struct {
	To      []string
	From    string
	Subject string
	HTML    string
}

// SendResult contains the response from the e-mail provider
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers e-mail through an external provider
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// ResendSender sends e-mail via the Resend API
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender using apiKey and the default from address
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send sends a single e-mail via Resend
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	from := req.From
	if from == "" {
		from = s.from
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("email_event", "event", "email_sent", "message_id", sent.Id, "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// NoopSender logs e-mail instead of delivering it. Used when no API key is set.
type NoopSender struct{}

// Send implements Sender
func (NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("email_event", "event", "email_skipped", "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// UserLookup resolves the owner of a reservation
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// markdown renders without WithUnsafe, so raw HTML in notes is escaped
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Mailer tells pilots about changes to their reservations
type Mailer struct {
	sender Sender
	users  UserLookup
	from   string
}

// NewMailer creates a Mailer
func NewMailer(sender Sender, users UserLookup, from string) *Mailer {
	return &Mailer{sender: sender, users: users, from: from}
}

// Publish implements Publisher. Events without a reservation are ignored.
func (m *Mailer) Publish(ctx context.Context, ev Event) error {
	if ev.Reservation == nil || ev.Reservation.UserID == "" {
		return nil
	}
	subject, ok := mailSubjects[ev.Type]
	if !ok {
		return nil
	}

	user, err := m.users.GetUserByID(ctx, ev.Reservation.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", ev.Reservation.UserID, err)
	}
	if user.Email == "" {
		return nil
	}

	body, err := renderReservationMail(user, ev)
	if err != nil {
		return err
	}

	_, err = m.sender.Send(ctx, SendRequest{
		To:      []string{user.Email},
		From:    m.from,
		Subject: subject,
		HTML:    body,
	})
	return err
}

var mailSubjects = map[EventType]string{
	EventReservationCreated: "Reserva registrada",
	EventReservationUpdated: "Reserva modificada",
	EventReservationDeleted: "Reserva eliminada",
}

func renderReservationMail(user *models.User, ev Event) (string, error) {
	r := ev.Reservation

	var md strings.Builder
	fmt.Fprintf(&md, "Hola %s,\n\n", user.Name)
	switch ev.Type {
	case EventReservationCreated:
		md.WriteString("Tu reserva ha quedado registrada.\n\n")
	case EventReservationUpdated:
		md.WriteString("Tu reserva ha sido modificada.\n\n")
	case EventReservationDeleted:
		md.WriteString("Tu reserva ha sido eliminada.\n\n")
	}

	aircraft := r.AircraftID
	if ev.Aircraft != nil {
		aircraft = fmt.Sprintf("%s (%s)", ev.Aircraft.Model, ev.Aircraft.TailNumber)
	}
	fmt.Fprintf(&md, "- **Avión:** %s\n", aircraft)
	fmt.Fprintf(&md, "- **Fecha:** %s\n", models.DateOnly(r.Date))
	fmt.Fprintf(&md, "- **Horario:** %s - %s\n", r.StartTime, r.EndTime)
	fmt.Fprintf(&md, "- **Estado:** %s\n", r.Status)
	if r.Notes != "" {
		fmt.Fprintf(&md, "\n%s\n", r.Notes)
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md.String()), &buf); err != nil {
		return "", fmt.Errorf("failed to render e-mail: %w", err)
	}
	return buf.String(), nil
}
