package render

import (
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/session"
)

// RenderOptions carry per-request data that only some formats read.
type RenderOptions struct {
	// Info titles OpenAPI documents. Empty parts fall back to
	// openapi.DefaultInfo.
	Info openapi.Info
	// Snapshot fills the HTML preview with live session values and errors.
	Snapshot *session.Snapshot
}
