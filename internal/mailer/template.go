package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Subject of every OTP email.
const Subject = "Your verification OTP"

var textTmpl = texttemplate.Must(texttemplate.New("otp.txt").Parse(
	`Your OTP code is {{.Code}}. It expires in {{.Minutes}} minutes.`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("otp.html").Parse(`
<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa; padding: 20px;">
  <div style="max-width: 500px; margin: 0 auto; background: #ffffff; border-radius: 12px; overflow: hidden;">
    <div style="background-color: #0f172a; padding: 20px 25px; color: #facc15; text-align: center;">
      <h2 style="margin: 0; font-size: 22px;">Fintech Tracker</h2>
      <p style="margin: 5px 0 0; font-size: 14px; color: #e2e8f0;">Secure Email Verification</p>
    </div>
    <div style="padding: 25px 30px; text-align: center; color: #1e293b;">
      <p style="font-size: 16px;">Hello,</p>
      <p style="font-size: 15px; color: #475569;">
        Please use the One-Time Password (OTP) below to verify your email address for Fintech Tracker.
      </p>
      <div style="margin: 25px auto; display: inline-block; background: #fef9c3; border: 2px solid #facc15; padding: 18px 28px; border-radius: 10px;">
        <span style="font-size: 30px; font-weight: bold; color: #b45309; letter-spacing: 5px;">{{.Code}}</span>
      </div>
      <p style="font-size: 14px; color: #475569;">This OTP will expire in <b>{{.Minutes}} minutes</b>.</p>
      <p style="font-size: 13px; color: #94a3b8;">If you didn't request this verification, please ignore this email.</p>
    </div>
    <div style="background-color: #0f172a; padding: 12px; text-align: center; color: #cbd5e1; font-size: 12px;">
      &copy; {{.Year}} Fintech Tracker. All rights reserved.
    </div>
  </div>
</div>
`))

// Rendered holds both bodies of an OTP email.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Render fills the OTP templates for msg.
func Render(msg *OTPMessage) (Rendered, error) {
	data := struct {
		Code    string
		Minutes int
		Year    int
	}{
		Code:    msg.Code,
		Minutes: msg.TTLMinutes(),
		Year:    msg.Timestamp.Year(),
	}

	var text, html bytes.Buffer

	if err := textTmpl.Execute(&text, data); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}

	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}

	return Rendered{Subject: Subject, Text: text.String(), HTML: html.String()}, nil
}
