// Package openapi loads OpenAPI 3 documents and turns request body schemas
// into form field configs and value validators.
package openapi
