package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm        ChromeClass = "cf-form"
	ClassSearch      ChromeClass = "cf-search"
	ClassGrid        ChromeClass = "cf-grid"
	ClassField       ChromeClass = "cf-field"
	ClassActions     ChromeClass = "cf-actions"
	ClassErrors      ChromeClass = "cf-errors"
	ClassModalRoot   ChromeClass = "cf-modal-root"
	ClassBackdrop    ChromeClass = "cf-modal-backdrop"
	ClassModal       ChromeClass = "cf-modal"
	ClassUnsupported ChromeClass = "cf-unsupported"
)
