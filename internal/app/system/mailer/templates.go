// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// OTPMessage is everything needed to tell a user their verification code.
type OTPMessage struct {
	To        string        `json:"to"`
	Name      string        `json:"name"`
	Code      string        `json:"code"`
	GroupName string        `json:"group_name,omitempty"`
	Expiry    time.Duration `json:"expiry"`
}

// BuildOTPEmail renders the verification code mail.
func BuildOTPEmail(m OTPMessage) Email {
	return Email{
		To:       m.To,
		Subject:  "Your GroupHub verification code",
		TextBody: buildOTPText(m),
		HTMLBody: buildOTPHTML(m),
	}
}

func buildOTPText(m OTPMessage) string {
	var buf bytes.Buffer
	if m.Name != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", m.Name)
	}
	if m.GroupName != "" {
		fmt.Fprintf(&buf, "You asked to join %s.\n\n", m.GroupName)
	}
	fmt.Fprintf(&buf, "Your verification code is: %s\n\n", m.Code)
	fmt.Fprintf(&buf, "This code expires in %s.\n\n", FormatExpiry(m.Expiry))
	buf.WriteString("If you did not request this code, you can safely ignore this email.\n")
	return buf.String()
}

var otpHTML = template.Must(template.New("otp").Parse(otpHTMLTemplate))

func buildOTPHTML(m OTPMessage) string {
	var buf bytes.Buffer
	_ = otpHTML.Execute(&buf, struct {
		OTPMessage
		ExpiresIn string
	}{m, FormatExpiry(m.Expiry)})
	return buf.String()
}

// FormatExpiry renders d as "10 minutes", "1 hour", "90 seconds".
func FormatExpiry(d time.Duration) string {
	switch {
	case d <= 0:
		return "a few minutes"
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

const otpHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Verification Code</title>
</head>
<body style="margin: 0; padding: 24px; font-family: Arial, sans-serif; background-color: #f3f4f6;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    {{if .Name}}<p style="color: #374151;">Hi {{.Name}},</p>{{end}}
    {{if .GroupName}}<p style="color: #374151;">You asked to join <strong>{{.GroupName}}</strong>.</p>{{end}}
    <p style="color: #374151;">Your verification code is:</p>
    <p style="font-size: 32px; font-weight: 700; letter-spacing: 8px; font-family: monospace; color: #111827;">{{.Code}}</p>
    <p style="font-size: 14px; color: #6b7280;">This code expires in {{.ExpiresIn}}.</p>
    <p style="font-size: 12px; color: #9ca3af;">If you did not request this code, you can safely ignore this email.</p>
  </div>
</body>
</html>`
