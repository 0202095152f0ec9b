// Package errors wraps the standard library errors package with categorized,
// component-tagged errors that can be forwarded to telemetry.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"strings"
)

// Category groups errors by the subsystem that produced them.
type Category string

const (
	CategoryDatabase      Category = "database"
	CategoryNetwork       Category = "network"
	CategoryConfiguration Category = "configuration"
	CategoryValidation    Category = "validation"
	CategoryNotification  Category = "notification"
	CategoryAlerting      Category = "alerting"
	CategoryGeneric       Category = "generic"
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// NewStd creates a plain sentinel error.
func NewStd(text string) error { return stderrors.New(text) }

// EnhancedError carries a wrapped error plus the component and category that raised it.
type EnhancedError struct {
	Err       error
	component string
	category  Category
	context   map[string]any
}

func (e *EnhancedError) Error() string {
	if e.component == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.component, e.Err.Error())
}

func (e *EnhancedError) Unwrap() error { return e.Err }

// Component returns the component that raised the error.
func (e *EnhancedError) Component() string { return e.component }

// Category returns the error category.
func (e *EnhancedError) Category() Category { return e.category }

// Context returns a copy of the attached context values.
func (e *EnhancedError) Context() map[string]any {
	return maps.Clone(e.context)
}

// Tags flattens component, category and context into string tags for telemetry.
func (e *EnhancedError) Tags() map[string]string {
	tags := map[string]string{
		"component": e.component,
		"category":  string(e.category),
	}
	for k, v := range e.context {
		tags[k] = fmt.Sprint(v)
	}
	return tags
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err *EnhancedError
}

// New starts building an enhanced error around err.
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &ErrorBuilder{err: &EnhancedError{Err: err, category: CategoryGeneric}}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(component string) *ErrorBuilder {
	b.err.component = strings.TrimSpace(component)
	return b
}

func (b *ErrorBuilder) Category(category Category) *ErrorBuilder {
	b.err.category = category
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.err.context == nil {
		b.err.context = make(map[string]any)
	}
	b.err.context[key] = value
	return b
}

// Build returns the assembled error.
func (b *ErrorBuilder) Build() *EnhancedError {
	return b.err
}

// CategoryOf returns the category of the first EnhancedError in err's tree,
// or CategoryGeneric when there is none.
func CategoryOf(err error) Category {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.category
	}
	return CategoryGeneric
}
