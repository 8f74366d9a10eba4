package components

// Component names registered by NewDefaultRegistry.
const (
	NameInput    = "input"
	NameTextarea = "textarea"
	NameSelect   = "select"
	NameRadio    = "radio"
	NameCheckbox = "checkbox"
	NameFile     = "file"
	NameHidden   = "hidden"
)

// PartialKey is the theme partial key that overrides a component, for
// example "forms.select".
func PartialKey(name string) string {
	return "forms." + normalize(name)
}
