package notify

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplateEmailVerification  = "email-verification"
	TemplateAccountClosed      = "account-closed"
	TemplateAccountRecovered   = "account-recovered"
	TemplateAccountRemoved     = "account-removed"
	TemplateDelegationAccepted = "delegation-accepted"
)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders {{key}} placeholders. Unknown keys are left as-is.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range builtInTemplates {
		e.templates[t.ID] = t
	}
	return e
}

var builtInTemplates = []Template{
	{
		ID:      TemplateEmailVerification,
		Subject: "Health Gateway Email Verification",
		Body: "Please verify your email address for Health Gateway by opening {{activation_link}}. " +
			"The link expires in {{expiry_hours}} hours.",
	},
	{
		ID:      TemplateAccountClosed,
		Subject: "Health Gateway Account Closed",
		Body: "Your Health Gateway account has been closed. You can recover it within 30 days by logging in " +
			"at {{host}}. After that your data will be removed.",
	},
	{
		ID:      TemplateAccountRecovered,
		Subject: "Health Gateway Account Recovered",
		Body:    "Your Health Gateway account has been recovered. You can log in at {{host}}.",
	},
	{
		ID:      TemplateAccountRemoved,
		Subject: "Health Gateway Account Removed",
		Body:    "Your Health Gateway account and its data have been removed.",
	},
	{
		ID:      TemplateDelegationAccepted,
		Subject: "Health Gateway Access Shared",
		Body:    "{{nickname}} has accepted your invitation and can now view your shared health records at {{host}}.",
	},
}

func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	e.templates[t.ID] = t
	e.mu.Unlock()
}

func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
