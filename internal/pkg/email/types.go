package email

// Config holds the SMTP relay settings.
type Config struct {
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	BaseURL   string // public base URL used to build links in mail bodies
}

// Configured reports whether a relay is set up at all. Without one, mail
// is silently skipped; the application runs fine without a mail server.
func (c Config) Configured() bool {
	return c.SMTPHost != ""
}

// Mailer sends application mail. Callers treat delivery as best-effort.
type Mailer interface {
	SendPasswordReset(to, username, token string) error
}
