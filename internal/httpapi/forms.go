package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var errSingleForm = errors.New("httpapi: request body must hold exactly one form")

type formSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"createdAt"`
	FieldCount int    `json:"fieldCount"`
}

func summarize(form schema.FormSchema) formSummary {
	return formSummary{
		ID:         form.ID,
		Name:       form.Name,
		CreatedAt:  form.CreatedAt,
		FieldCount: len(form.Fields),
	}
}

// listForms returns a summary of every stored form in storage order.
func (s *Server) listForms(c *gin.Context) {
	forms, err := s.store.LoadAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := make([]formSummary, 0, len(forms))
	for _, form := range forms {
		out = append(out, summarize(form))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// createForm accepts a JSON or YAML document holding one form, checks it and
// saves it. A missing id or createdAt is filled in; an existing id is
// overwritten.
func (s *Server) createForm(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		s.badRequest(c, err)
		return
	}
	forms, err := schema.Decode(schema.SourceInline("request body"), raw)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	if len(forms) != 1 {
		s.badRequest(c, errSingleForm)
		return
	}

	form := formbuilder.Prepare(forms[0], s.now())

	result := validation.CheckSchema(form, validation.CheckOptions{Checker: s.evaluator})
	if !result.Valid {
		s.respondError(c, &invalidSchemaError{result: result})
		return
	}
	if err := s.store.Save(c.Request.Context(), form); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": form})
}

func (s *Server) getForm(c *gin.Context) {
	form, err := store.Find(c.Request.Context(), s.store, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": form})
}

func (s *Server) deleteForm(c *gin.Context) {
	if err := s.store.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// formOpenAPI serves a single-form OpenAPI document.
func (s *Server) formOpenAPI(c *gin.Context) {
	s.writeFormat(c, render.FormatOpenAPI, nil)
}

// exportForm renders the form in the format named by ?format= (json by
// default).
func (s *Server) exportForm(c *gin.Context) {
	s.writeFormat(c, c.DefaultQuery("format", render.FormatJSON), nil)
}

// previewForm renders the form as HTML. With ?session=<id> the live values
// and errors of that session are rendered.
func (s *Server) previewForm(c *gin.Context) {
	sid := c.Query("session")
	if sid == "" {
		s.writeFormat(c, render.FormatHTML, nil)
		return
	}
	entry, ok := s.sessions.get(sid)
	if !ok || entry.formID != c.Param("id") {
		s.respondError(c, errSessionNotFound)
		return
	}
	snapshot, err := entry.runtime.Snapshot()
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.writeFormat(c, render.FormatHTML, &snapshot)
}

func (s *Server) writeFormat(c *gin.Context, format string, snapshot *session.Snapshot) {
	renderer, err := s.formats.Get(format)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	form, err := store.Find(ctx, s.store, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	body, err := renderer.Render(ctx, []schema.FormSchema{form}, render.RenderOptions{Snapshot: snapshot})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, renderer.ContentType(), body)
}
