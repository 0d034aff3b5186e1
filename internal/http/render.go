package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/log"
)

const layoutTemplate = "layout.html"

// renderer holds one template set per page, each cloned from the layout.
type renderer struct {
	pages map[string]*template.Template
}

// amountPrinter formats amounts with English digit grouping. Printers are
// not safe for concurrent use.
var amountPrinter = struct {
	sync.Mutex
	p *message.Printer
}{p: message.NewPrinter(language.English)}

func formatMoney(d decimal.Decimal) string {
	amountPrinter.Lock()
	defer amountPrinter.Unlock()
	return amountPrinter.p.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"date":  func(d core.DateValue) string { return d.String() },
	"chart": func(b []byte) string { return string(b) },
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
}

func newRenderer(fsys fs.FS) (*renderer, error) {
	base, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(fsys, "templates/"+layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	rd := &renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		rd.pages[path.Base(file)] = t
	}
	return rd, nil
}

// pageData is what every page template receives. Content carries the
// page-specific values.
type pageData struct {
	Title         string
	Session       auth.Session
	Flashes       []auth.Flash
	GoogleEnabled bool
	DemoEnabled   bool
	Year          int
	Content       any
}

// render executes page into a buffer so a failing template never produces a
// half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	t, ok := s.views.pages[page]
	if !ok {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unknown page template", "template", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, _ := s.sessions.Get(r)
	data := pageData{
		Title:         title,
		Session:       sess,
		Flashes:       s.sessions.PopFlashes(r),
		GoogleEnabled: s.google != nil,
		DemoEnabled:   s.demoMode,
		Year:          time.Now().Year(),
		Content:       content,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpRender, "template", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
