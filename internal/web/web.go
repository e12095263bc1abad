// Package web serves the browser client that drives the crudforge API.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crudforge/internal/config"
	"go.uber.org/fx"
)

//go:embed templates/*.html static/*
var assets embed.FS

var Module = fx.Module("web",
	fx.Provide(New),
)

// DefaultUserPayload prefills the CRUD tester.
var DefaultUserPayload = map[string]string{
	"org_user_id":   "user001",
	"name":          "John Doe",
	"contact_no":    "1234567890",
	"employee_code": "EMP001",
	"created_date":  "2025-10-21T10:00:00",
	"valid_till":    "2025-12-31T23:59:59",
}

type pageData struct {
	AppName        string
	Version        string
	BaseURL        string
	DefaultPayload string
}

// Page renders the client shell and serves its static assets.
type Page struct {
	tmpl   *template.Template
	static http.FileSystem
	data   pageData
}

func New(cfg config.Config) (*Page, error) {
	tmpl, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse web templates: %w", err)
	}
	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(DefaultUserPayload, "", "  ")
	if err != nil {
		return nil, err
	}

	return &Page{
		tmpl:   tmpl,
		static: http.FS(staticFS),
		data: pageData{
			AppName:        cfg.AppName,
			Version:        cfg.AppVersion,
			BaseURL:        cfg.PublicBaseURL,
			DefaultPayload: string(payload),
		},
	}, nil
}

// Register mounts / and /static on r.
func (p *Page) Register(r gin.IRoutes) {
	r.GET("/", p.Index)
	r.StaticFS("/static", p.static)
}

func (p *Page) Index(c *gin.Context) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", p.data); err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
