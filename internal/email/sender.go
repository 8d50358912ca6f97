// Package email sends the client-facing SAV mails over SMTP. All sends are
// best-effort from the caller's point of view; a failure is reported as an
// error so the worker can log and count it, but nothing upstream rolls back.
package email

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	subjectScheduled    = "Votre intervention est planifiée"
	subjectStarted      = "Votre intervention a démarré"
	subjectCompleted    = "Votre intervention est terminée"
	subjectInvoiceReady = "Votre facture est disponible"
)

// SMTPSender delivers templated SAV emails via a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendInterventionScheduled notifies a client that an intervention was planned.
func (s *SMTPSender) SendInterventionScheduled(ctx context.Context, toEmail, clientName string, plannedDate time.Time) error {
	content, err := renderEmailTemplate("scheduled.html", scheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectScheduled,
			Heading: "Intervention planifiée",
		},
		ClientName:  clientName,
		PlannedDate: plannedDate.Format("02/01/2006 15:04"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectScheduled, content)
}

// SendInterventionStarted notifies a client that the technician started work.
func (s *SMTPSender) SendInterventionStarted(ctx context.Context, toEmail, clientName string) error {
	content, err := renderEmailTemplate("started.html", startedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectStarted,
			Heading: "Intervention en cours",
		},
		ClientName: clientName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectStarted, content)
}

// SendInterventionCompleted notifies a client of completion and the amount due.
func (s *SMTPSender) SendInterventionCompleted(ctx context.Context, toEmail, clientName string, amount int64, isFree bool) error {
	content, err := renderEmailTemplate("completed.html", completedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectCompleted,
			Heading: "Intervention terminée",
		},
		ClientName:      clientName,
		AmountFormatted: formatCents(amount),
		IsFree:          isFree,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectCompleted, content)
}

// SendInvoiceReady notifies a client that their invoice can be downloaded.
func (s *SMTPSender) SendInvoiceReady(ctx context.Context, toEmail, clientName, invoiceNumber string, amount int64) error {
	content, err := renderEmailTemplate("invoice_ready.html", invoiceReadyEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectInvoiceReady,
			Heading: "Facture disponible",
		},
		ClientName:      clientName,
		InvoiceNumber:   invoiceNumber,
		AmountFormatted: formatCents(amount),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectInvoiceReady, content)
}
