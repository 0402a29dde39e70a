// Package mail envía las actas por correo (SMTP) detrás de un circuit breaker.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
)

var _ ports.Mailer = (*SMTPMailer)(nil)

// ErrCircuitOpen el servidor SMTP falló varias veces seguidas; no se intenta hasta que pase el timeout.
var ErrCircuitOpen = errors.New("mail: circuito abierto")

// sendFunc firma de email.Email.Send; se reemplaza en pruebas.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// SMTPMailer implementa ports.Mailer con jordan-wright/email.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	cb   *gobreaker.CircuitBreaker[struct{}]
	send sendFunc
}

// NewSMTPMailer construye el mailer. El breaker abre tras 3 fallos consecutivos y vuelve
// a probar después de un minuto.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: from,
		auth: auth,
		cb:   newBreaker("smtp"),
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("mail: cambio de estado del circuito")
		},
	})
}

// Send envía el mensaje con el PDF adjunto.
func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: sin destinatarios")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = msg.To
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if len(msg.Attachment) > 0 {
		if _, err := e.Attach(bytes.NewReader(msg.Attachment), msg.AttachmentName, "application/pdf"); err != nil {
			return fmt.Errorf("mail: adjuntar acta: %w", err)
		}
	}

	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.send(e, m.addr, m.auth)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	if err != nil {
		return fmt.Errorf("mail: enviar: %w", err)
	}
	return nil
}
