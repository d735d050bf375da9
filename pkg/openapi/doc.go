// Package openapi converts form schemas to and from OpenAPI 3 schema objects
// using kin-openapi. Each form becomes an object schema whose properties are
// the fields; builder-only metadata (field order, labels, rule messages and
// derivations) travels in x-formbuilder extensions so Import can restore the
// exact schema that Export produced.
package openapi
