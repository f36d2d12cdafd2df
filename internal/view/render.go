package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// layoutFiles are parsed into every page.
var layoutFiles = []string{"templates/shell.html", "templates/components.html"}

// Page is the data every template receives. Content holds the
// page-specific view model.
type Page struct {
	Title     string
	User      *model.User
	CSRFField template.HTML
	Notice    string
	Content   any
}

// Button is the data of the button component: a submit control posting
// its form to Action.
type Button struct {
	Title  string
	Action string
	Method string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages   map[string]*template.Template
	md      goldmark.Markdown
	printer *message.Printer
}

// NewRenderer parses all page templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		pages:   make(map[string]*template.Template),
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		printer: message.NewPrinter(language.AmericanEnglish),
	}

	base, err := template.New("layout").Funcs(r.funcs()).ParseFS(templateFS, layoutFiles...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, file := range files {
		if isLayout(file) {
			continue
		}
		page, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return r, nil
}

func isLayout(file string) bool {
	for _, l := range layoutFiles {
		if l == file {
			return true
		}
	}
	return false
}

// Render writes the named page. Output is buffered so a template error
// never leaves a half-written page behind.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "shell", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// StaticHandler serves the embedded stylesheet and images.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"usd":      r.USD,
		"btc":      r.BTC,
		"markdown": r.Markdown,
		"button": func(title, action string) Button {
			return Button{Title: title, Action: action, Method: http.MethodPost}
		},
		"navButton": func(title, action string) Button {
			return Button{Title: title, Action: action, Method: http.MethodGet}
		},
		"hasRole": func(u *model.User, role string) bool {
			return model.IsRole(u, model.Role(role))
		},
		"join": strings.Join,
	}
}

// USD formats revenue the way en-US locales do, e.g. $3,000,000.
func (r *Renderer) USD(v float64) string {
	return r.printer.Sprintf("$%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// BTC formats a price in bitcoin, e.g. 0.008 ₿.
func (r *Renderer) BTC(v float64) string {
	return r.printer.Sprintf("%v ₿", number.Decimal(v, number.MaxFractionDigits(6)))
}

// Markdown renders endpoint descriptions. Raw HTML in the source is
// escaped by goldmark's default renderer.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
