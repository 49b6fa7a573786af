package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const resetPasswordHTML = `<p>Dear {{.Username}},</p>
<p>To reset your password <a href="{{.ResetURL}}">click here</a>.</p>
<p>Alternatively, you can paste the following link in your browser's address bar:</p>
<p>{{.ResetURL}}</p>
<p>If you have not requested a password reset simply ignore this message.</p>
<p>Sincerely,</p>
<p>The Microblog Team</p>
`

const resetPasswordText = `Dear {{.Username}},

To reset your password click on the following link:

{{.ResetURL}}

If you have not requested a password reset simply ignore this message.

Sincerely,

The Microblog Team
`

type resetPasswordData struct {
	Username string
	ResetURL string
}

type templateSet struct {
	resetHTML *template.Template
	resetText *template.Template
}

func newTemplateSet() (*templateSet, error) {
	html, err := template.New("reset_password_html").Parse(resetPasswordHTML)
	if err != nil {
		return nil, fmt.Errorf("parse reset html template: %w", err)
	}
	text, err := template.New("reset_password_text").Parse(resetPasswordText)
	if err != nil {
		return nil, fmt.Errorf("parse reset text template: %w", err)
	}
	return &templateSet{resetHTML: html, resetText: text}, nil
}

func (t *templateSet) render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
