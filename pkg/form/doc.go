// Package form implements the CRUD form state machine. A Provider owns one
// Instance (values, errors, touched and dirty tracking) built from a
// model.FormConfig, moves between the create, update, delete, search and view
// operations, and dispatches Submit to the bound mutations. Successful writes
// invalidate the config id and clear the stored draft.
package form
