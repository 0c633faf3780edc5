package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title    string
	UserName string
	LoggedIn bool
	Flashes  []Flash
	Data     any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"num":   num,
	"fmt1":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"fmt2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"title": titleCase,
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
}

// titleCase turns a form field name like "temp_c" into "Temp C".
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func num(v float64) string {
	return agronomy.FormatNumber(v)
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render buffers the output so a failing template never sends a partial page.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) page(c echo.Context, title string, data any) Page {
	sess := s.session(c)
	name := getString(sess, keyUserName)
	return Page{
		Title:    title,
		UserName: name,
		LoggedIn: getString(sess, keyUserID) != "",
		Flashes:  s.flashes(c),
		Data:     data,
	}
}

func (s *Server) render(c echo.Context, tmpl, title string, data any) error {
	return c.Render(http.StatusOK, tmpl, s.page(c, title, data))
}
