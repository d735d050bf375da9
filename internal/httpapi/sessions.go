package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var errFieldRequired = errors.New("httpapi: fieldId is required")

type sessionView struct {
	ID       string           `json:"id"`
	FormID   string           `json:"formId"`
	State    string           `json:"state"`
	Revision uint64           `json:"revision"`
	Snapshot session.Snapshot `json:"snapshot"`
}

type submitView struct {
	sessionView
	OK       bool                  `json:"ok"`
	Failures []*validation.Failure `json:"failures,omitempty"`
}

type editRequest struct {
	FieldID string `json:"fieldId"`
	Value   any    `json:"value"`
}

func viewOf(entry *sessionEntry, snapshot session.Snapshot) sessionView {
	return sessionView{
		ID:       entry.id,
		FormID:   entry.formID,
		State:    entry.runtime.State().String(),
		Revision: snapshot.Revision,
		Snapshot: snapshot,
	}
}

func (s *Server) newRuntime() *session.Runtime {
	opts := []session.Option{
		session.WithEvaluator(s.evaluator),
		session.WithLogger(s.logger),
	}
	if s.metrics != nil {
		opts = append(opts, session.WithObserver(s.metrics))
	}
	return session.New(opts...)
}

// openSession loads a stored form into a new runtime.
func (s *Server) openSession(c *gin.Context) {
	form, err := store.Find(c.Request.Context(), s.store, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	rt := s.newRuntime()
	snapshot, err := rt.Load(form)
	if err != nil {
		s.respondError(c, err)
		return
	}
	entry := s.sessions.add(form.ID, rt)
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	c.JSON(http.StatusCreated, gin.H{"data": viewOf(entry, snapshot)})
}

func (s *Server) lookup(c *gin.Context) (*sessionEntry, bool) {
	entry, ok := s.sessions.get(c.Param("sid"))
	if !ok {
		s.respondError(c, errSessionNotFound)
	}
	return entry, ok
}

func (s *Server) getSession(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	snapshot, err := entry.runtime.Snapshot()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewOf(entry, snapshot)})
}

func (s *Server) closeSession(c *gin.Context) {
	if !s.sessions.remove(c.Param("sid")) {
		s.respondError(c, errSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// applyEdit writes one value and returns the snapshot with every derived
// field the edit touched.
func (s *Server) applyEdit(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.FieldID == "" {
		s.badRequest(c, errFieldRequired)
		return
	}
	snapshot, err := entry.runtime.ApplyEdit(c.Request.Context(), req.FieldID, req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewOf(entry, snapshot)})
}

// submitSession validates every field. A form with failures answers 422
// with the failures in the body.
func (s *Server) submitSession(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	result, err := entry.runtime.Submit()
	if err != nil {
		s.respondError(c, err)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"data": submitView{
		sessionView: viewOf(entry, result.Snapshot),
		OK:          result.OK,
		Failures:    result.Failures,
	}})
}
