package contact

import "regexp"

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z\s]{2,}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	minSubjectLength = 3
	minMessageLength = 10
)

// ValidationError is a locally detected problem with the draft. Field is the
// input the message refers to.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the draft and returns the first failing rule, or nil.
// Rules run in form order: name, email, subject, message.
func Validate(d Draft) *ValidationError {
	if !nameRegex.MatchString(d.Name) {
		return &ValidationError{
			Field:   FieldName,
			Message: "Please enter a valid name (at least 2 characters, letters only)",
		}
	}

	if !emailRegex.MatchString(d.Email) {
		return &ValidationError{Field: FieldEmail, Message: "Please enter a valid email address"}
	}

	if length(d.Subject) < minSubjectLength {
		return &ValidationError{Field: FieldSubject, Message: "Subject must be at least 3 characters long"}
	}

	if length(d.Message) < minMessageLength {
		return &ValidationError{Field: FieldMessage, Message: "Message must be at least 10 characters long"}
	}

	return nil
}
