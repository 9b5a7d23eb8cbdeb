// Package contact holds the state behind the portfolio's contact form: the
// draft being typed, its validation, autosave, submission to the form relay
// and copy-to-clipboard feedback.
package contact

import (
	"errors"
	"unicode/utf8"
)

// MaxMessageLength bounds the message field, counted in characters.
const MaxMessageLength = 500

// Field names one input of the contact form. The values double as the form
// keys sent to the relay.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldSubject Field = "subject"
	FieldMessage Field = "message"
)

// ErrUnknownField is returned when an edit targets a field the form does not have.
var ErrUnknownField = errors.New("unknown contact form field")

// Draft is the in-progress contact form input.
type Draft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// IsZero reports whether every field is empty.
func (d Draft) IsZero() bool {
	return d == Draft{}
}

// Get returns the value of f.
func (d Draft) Get(f Field) (string, error) {
	switch f {
	case FieldName:
		return d.Name, nil
	case FieldEmail:
		return d.Email, nil
	case FieldSubject:
		return d.Subject, nil
	case FieldMessage:
		return d.Message, nil
	}
	return "", ErrUnknownField
}

// with returns a copy of d with f set to value. ok is false when the value
// is refused, which only happens for an over-long message.
func (d Draft) with(f Field, value string) (next Draft, ok bool, err error) {
	next = d
	switch f {
	case FieldName:
		next.Name = value
	case FieldEmail:
		next.Email = value
	case FieldSubject:
		next.Subject = value
	case FieldMessage:
		if length(value) > MaxMessageLength {
			return d, false, nil
		}
		next.Message = value
	default:
		return d, false, ErrUnknownField
	}
	return next, true, nil
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

// CounterLevel is the colour band of the message counter.
type CounterLevel int

const (
	CounterNormal CounterLevel = iota
	CounterWarning
	CounterDanger
)

func (l CounterLevel) String() string {
	switch l {
	case CounterWarning:
		return "warning"
	case CounterDanger:
		return "danger"
	}
	return "normal"
}

// counterLevel bands the message length at 80% and 90% of the maximum.
func counterLevel(n int) CounterLevel {
	switch {
	case n > MaxMessageLength*9/10:
		return CounterDanger
	case n > MaxMessageLength*8/10:
		return CounterWarning
	}
	return CounterNormal
}
