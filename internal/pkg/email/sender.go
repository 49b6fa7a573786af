package email

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// GomailSender delivers mail over SMTP.
type GomailSender struct {
	config    Config
	dialer    *gomail.Dialer
	templates *templateSet
}

func NewGomailSender(config Config) (*GomailSender, error) {
	templates, err := newTemplateSet()
	if err != nil {
		return nil, err
	}

	sender := &GomailSender{
		config:    config,
		templates: templates,
	}
	if config.Configured() {
		sender.dialer = gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.Username, config.Password)
	}
	return sender, nil
}

func (s *GomailSender) SendPasswordReset(to, username, token string) error {
	if s.dialer == nil {
		return nil
	}

	data := resetPasswordData{
		Username: username,
		ResetURL: fmt.Sprintf("%s/reset-password?token=%s", s.config.BaseURL, token),
	}

	textBody, err := s.templates.render(s.templates.resetText, data)
	if err != nil {
		return err
	}
	htmlBody, err := s.templates.render(s.templates.resetHTML, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.config.FromEmail, s.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", "[Microblog] Reset Your Password")
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	return nil
}
