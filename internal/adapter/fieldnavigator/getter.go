package fieldnavigator

import "github.com/vinicius-lino-figueiredo/mqlopt/domain"

// Getter implements [domain.Getter].
type Getter struct {
	value   any
	defined bool
}

// Defined returns a [domain.Getter] holding a value that is set, even if
// the value is nil.
func Defined(v any) domain.Getter {
	return Getter{value: v, defined: true}
}

// Missing returns a [domain.Getter] of a missing value.
func Missing() domain.Getter {
	return Getter{}
}

// Get implements [domain.Getter].
func (g Getter) Get() (any, bool) {
	return g.value, g.defined
}
