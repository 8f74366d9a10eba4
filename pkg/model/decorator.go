package model

// Decorator enriches a form config after it has been assembled, for example
// to attach fields derived from an external schema document.
type Decorator interface {
	Decorate(*FormConfig) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormConfig) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(cfg *FormConfig) error {
	return fn(cfg)
}
