package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

var (
	templates   = make(map[string]emailTemplate)
	templatesMu sync.RWMutex
)

type (
	emailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// Category groups messages in the provider's statistics, eg. "admissions".
		Category string
		// Tags are tracking values sent along with the message, eg. the application reference.
		Tags map[string]string

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// RegisterEmailTemplate parses and registers the text and html bodies of an email template.
// html may be empty. Parsing errors panic: templates are registered at init time.
func RegisterEmailTemplate(name, text, html string) {
	tmpl := emailTemplate{
		text: texttmpl.Must(texttmpl.New(name).Option("missingkey=error").Parse(text)),
	}
	if html != "" {
		tmpl.html = htmltmpl.Must(htmltmpl.New(name).Option("missingkey=error").Parse(html))
	}
	templatesMu.Lock()
	templates[name] = tmpl
	templatesMu.Unlock()
}

func getEmailTemplate(name string) (emailTemplate, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	tmpl, ok := templates[name]
	return tmpl, ok
}

// Render fills TextContent and HTMLContent. frontendBaseURL is exposed to templates.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmpl, ok := getEmailTemplate(m.TemplateName)
	if !ok {
		return errors.Errorf("email template %q not registered", m.TemplateName)
	}
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}

	if m.TextContent == "" {
		var buff bytes.Buffer
		if err := tmpl.text.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering text content")
		}
		m.TextContent = buff.String()
	}
	if tmpl.html != nil {
		var buff bytes.Buffer
		if err := tmpl.html.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html content")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
