// Package mailtpl renders the e-mails shared by more than one module.
package mailtpl

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// CodeData feeds the one-time code e-mail.
type CodeData struct {
	Code      string
	Purpose   string
	ExpiresAt time.Time
	Now       time.Time
}

func (d CodeData) Minutes() int {
	m := int(d.ExpiresAt.Sub(d.Now).Round(time.Minute) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

//nolint:gochecknoglobals // parsed once
var (
	codeHTML = htmltemplate.Must(htmltemplate.New("code_html").Parse(
		`<p>Your EstateBite verification code is:</p>` +
			`<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>` +
			`<p>It expires in {{.Minutes}} minute(s). If you did not request it, ignore this e-mail.</p>`,
	))
	codeText = texttemplate.Must(texttemplate.New("code_text").Parse(
		"Your EstateBite verification code is {{.Code}}.\n" +
			"It expires in {{.Minutes}} minute(s). If you did not request it, ignore this e-mail.\n",
	))
)

// CodeSubject returns the e-mail subject line for a credential purpose.
func CodeSubject(purpose string) string {
	switch purpose {
	case "signup-verification":
		return "Verify your EstateBite account"
	case "password-reset":
		return "Reset your EstateBite password"
	case "login-2fa":
		return "Your EstateBite sign-in code"
	case "email-change":
		return "Confirm your new EstateBite e-mail"
	default:
		return "Your EstateBite verification code"
	}
}

// RenderCode returns the HTML and plain-text bodies of a code e-mail.
func RenderCode(d CodeData) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := codeHTML.Execute(&hb, d); err != nil {
		return "", "", err
	}
	if err := codeText.Execute(&tb, d); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
