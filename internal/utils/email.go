package utils

import (
	"bytes"
	"context"
	"log"

	"storefront_back_end/internal/config"

	"github.com/wneessen/go-mail"
)

type Attachment struct {
	Name string
	Data []byte
}

type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer envoie un e-mail déjà rendu
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SMTPMailer envoie via SMTP authentifié (TLS obligatoire)
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(e.To); err != nil {
		return err
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextHTML, e.HTML)

	for _, a := range e.Attachments {
		msg.AttachReader(a.Name, bytes.NewReader(a.Data))
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", e.To)
	return client.DialAndSendWithContext(ctx, msg)
}
