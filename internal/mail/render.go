package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[Template]string{
	TemplateActivation:    "Activate your account",
	TemplateCredentials:   "Your new account",
	TemplatePasswordReset: "Reset your password",
}

// Renderer turns a Message into a subject and an HTML body.
type Renderer struct {
	appName   string
	templates *template.Template
}

func NewRenderer(appName string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{appName: appName, templates: tmpl}, nil
}

func (r *Renderer) Render(msg Message) (string, string, error) {
	subject, ok := subjects[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", msg.Template)
	}

	var body bytes.Buffer
	err := r.templates.ExecuteTemplate(&body, string(msg.Template)+".html", map[string]interface{}{
		"Name":    msg.Name,
		"AppName": r.appName,
		"Data":    msg.Data,
	})
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return r.appName + ": " + subject, body.String(), nil
}
