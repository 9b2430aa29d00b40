// Package view renders the embedded declaration templates. Figures are
// formatted for the Latvian locale, matching the printed MVU form.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/firmlens/firmlens/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NewEngine parses the embedded templates at startup.
func NewEngine() (*Engine, error) {
	printer := message.NewPrinter(language.Latvian)
	funcMap := template.FuncMap{
		"eur": func(v float64) string {
			return printer.Sprintf("%.2f", v)
		},
		"awu": func(v float64) string {
			return printer.Sprintf("%.2f", v)
		},
		"percent": func(v float64) string {
			return printer.Sprintf("%.2f", v) + " %"
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02.01.2006")
		},
		"categoryLV": func(code string) string {
			switch code {
			case "MICRO":
				return "Mikrouzņēmums"
			case "SMALL":
				return "Mazais uzņēmums"
			case "MEDIUM":
				return "Vidējais uzņēmums"
			case "LARGE":
				return "Lielais uzņēmums"
			default:
				return code
			}
		},
		"companyTypeLV": func(code string) string {
			switch code {
			case "AUTONOMOUS":
				return "Autonoms uzņēmums"
			case "PARTNER":
				return "Partneruzņēmums"
			case "LINKED":
				return "Saistīts uzņēmums"
			default:
				return code
			}
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/declaration/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template into the response writer.
func (e *Engine) Render(w http.ResponseWriter, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderString executes a named template into a string, for handing the
// document to the PDF renderer.
func (e *Engine) RenderString(name string, data any) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	buf := &bytes.Buffer{}
	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
