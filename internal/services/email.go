package services

import (
	"fmt"
	"net/smtp"

	"github.com/lberthe/kanbo-api/internal/config"
)

type EmailService struct {
	cfg config.SMTPConfig
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

func (s *EmailService) SendProjectInvite(to, projectName, inviterName, message string) error {
	subject := fmt.Sprintf("Invitation au projet %s", projectName)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Invitation</h2>
			<p>Bonjour,</p>
			<p><strong>%s</strong> vous invite à rejoindre le projet <strong>%s</strong>.</p>
			<p>%s</p>
			<p>Connectez-vous à l'application pour répondre à cette invitation.</p>
		</body>
		</html>
	`, inviterName, projectName, message)

	return s.Send(to, subject, body)
}

func (s *EmailService) SendGroupInvite(to, groupName, inviterName, message string) error {
	subject := fmt.Sprintf("Invitation à l'équipe %s", groupName)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Invitation</h2>
			<p>Bonjour,</p>
			<p><strong>%s</strong> vous invite à rejoindre l'équipe <strong>%s</strong>.</p>
			<p>%s</p>
			<p>Connectez-vous à l'application pour répondre à cette invitation.</p>
		</body>
		</html>
	`, inviterName, groupName, message)

	return s.Send(to, subject, body)
}
