package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	"path/filepath"
	"strings"
	texttmpl "text/template"
)

type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

var (
	templates       map[string]*emailTemplate // keyed by template name, no ext
	frontendBaseURL string
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
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

func (m *EmailMessage) contextData() ContextData {
	return ContextData{
		FrontendBaseURL: frontendBaseURL,
		Data:            m.TemplateData,
	}
}

// Render fills TextContent and HTMLContent from BodyStr or the named template.
// Missing templates are not an error; the content is simply left empty.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}

	if m.TemplateName == "" {
		return nil
	}
	tmpl, ok := templates[m.TemplateName]
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if m.TextContent == "" && tmpl.text != nil {
		if err := tmpl.text.Execute(&buff, m.contextData()); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}
	if tmpl.html != nil {
		buff.Reset()
		if err := tmpl.html.Execute(&buff, m.contextData()); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads all email templates from assets/templates/email.
// Each template comes in a .txt and a .gohtml flavor, both wrapping the
// matching "_base" layout; files prefixed with "_" are bases and are not
// registered on their own.
func ParseEmailTemplates(conf *Config, logger Logger) {
	templates = make(map[string]*emailTemplate)
	frontendBaseURL = conf.FrontendBaseURL

	rp := filepath.Join(conf.WorkDir, "assets", "templates", "email")
	fps, err := filepath.Glob(filepath.Join(rp, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
		return
	}

	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || (ext != ".txt" && ext != ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(emailTemplate)
			templates[name] = entry
		}

		switch ext {
		case ".txt":
			tmpl, err := texttmpl.ParseFiles(filepath.Join(rp, "_base.txt"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		case ".gohtml":
			tmpl, err := htmltmpl.ParseFiles(filepath.Join(rp, "_base.gohtml"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			entry.html = tmpl
		}
	}
}
