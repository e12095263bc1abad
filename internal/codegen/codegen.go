// Package codegen renders a standalone Go CRUD service for one organization.
package codegen

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/smallbiznis/crudforge/internal/identity"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	ErrInvalidOrgID   = errors.New("invalid_org_id")
	ErrInvalidOrgName = errors.New("invalid_org_name")
)

// Request names the organization the code is generated for.
type Request struct {
	OrgID   string
	OrgName string
}

// Result is the rendered source and a suggested file name.
type Result struct {
	OrgID    string `json:"org_id"`
	OrgName  string `json:"org_name"`
	FileName string `json:"file_name"`
	Code     string `json:"generated_code"`
}

type templateData struct {
	OrgID        string
	OrgName      string
	DatabaseFile string
	ListenAddr   string
}

type Generator struct {
	tmpl *template.Template
}

func New() (*Generator, error) {
	tmpl, err := template.New("crud_api.go.tmpl").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"quote":   strconv.Quote,
			"comment": commentSafe,
		}).
		ParseFS(templateFS, "templates/crud_api.go.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse code template: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

// Generate renders the template. Values are emitted as quoted Go literals or
// single-line comments, so any input yields source that gofmt accepts.
func (g *Generator) Generate(req Request) (Result, error) {
	orgID := strings.TrimSpace(req.OrgID)
	if orgID == "" {
		return Result{}, ErrInvalidOrgID
	}
	orgName := strings.TrimSpace(req.OrgName)
	if orgName == "" {
		return Result{}, ErrInvalidOrgName
	}

	slug := identity.Slug(orgName)
	data := templateData{
		OrgID:        orgID,
		OrgName:      orgName,
		DatabaseFile: slug + ".db",
		ListenAddr:   ":8000",
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return Result{}, fmt.Errorf("render code template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("generated code does not parse: %w", err)
	}

	return Result{
		OrgID:    orgID,
		OrgName:  orgName,
		FileName: slug + "_api.go",
		Code:     string(formatted),
	}, nil
}

// commentSafe collapses s onto one line so it cannot end a line comment.
func commentSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
