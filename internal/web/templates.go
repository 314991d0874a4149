package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/blockedby/regstats/internal/stats"
)

//go:embed templates
var embedded embed.FS

// EmbeddedTemplates returns the templates compiled into the binary.
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateEngine handles HTML template rendering
type TemplateEngine struct {
	fsys      fs.FS
	templates *template.Template
	reload    bool // dev mode: reload on each request
}

// NewTemplateEngine creates a template engine over fsys. Layout and partials
// live at the root and in partials/; pages/ holds one file per page.
func NewTemplateEngine(fsys fs.FS, reload bool) *TemplateEngine {
	return &TemplateEngine{
		fsys:   fsys,
		reload: reload,
	}
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, io.ErrShortBuffer
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, io.ErrShortBuffer
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"lower": strings.ToLower,
		"pct":   stats.FormatPercent,
		"width": func(p float64) string {
			return strings.TrimSuffix(stats.FormatPercent(stats.BarWidth(p)), "%")
		},
		"clock": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("15:04:05")
		},
	}
}

// Load parses all templates except the pages directory
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Funcs(funcs())

	err := fs.WalkDir(te.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// pages are parsed on demand
		if d.IsDir() && d.Name() == "pages" {
			return fs.SkipDir
		}

		if !d.IsDir() && path.Ext(p) == ".html" {
			_, err = tmpl.ParseFS(te.fsys, p)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	te.templates = tmpl
	return nil
}

func (te *TemplateEngine) page(name string) (*template.Template, error) {
	if te.reload || te.templates == nil {
		if err := te.Load(); err != nil {
			return nil, err
		}
	}

	tmpl, err := te.templates.Clone()
	if err != nil {
		return nil, err
	}
	return tmpl.ParseFS(te.fsys, path.Join("pages", name+".html"))
}

// Render renders a page inside the layout
func (te *TemplateEngine) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderContent renders only the content template without layout (for HTMX)
func (te *TemplateEngine) RenderContent(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "content", data)
}
