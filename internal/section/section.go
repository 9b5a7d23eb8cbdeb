// Package section works out which part of the single-page portfolio is
// currently in view.
package section

import "fmt"

// ID names one region of the page.
type ID string

const (
	Home      ID = "home"
	About     ID = "about"
	Skills    ID = "skills"
	Education ID = "education"
	Projects  ID = "projects"
	Contact   ID = "contact"
)

// Order is the top-to-bottom display order of the page.
var Order = []ID{Home, About, Skills, Education, Projects, Contact}

// DefaultThreshold leaves room for the fixed header: a section counts as
// reached once its top is within this many pixels of the scroll offset.
const DefaultThreshold = 50

// Extent is the on-page position of a rendered section.
type Extent struct {
	ID     ID      `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Bottom returns the lower edge of the section.
func (e Extent) Bottom() float64 { return e.Top + e.Height }

// Parse checks that s names a known section.
func Parse(s string) (ID, error) {
	for _, id := range Order {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// Label is the navigation text for a section.
func (id ID) Label() string {
	switch id {
	case Home:
		return "Home"
	case About:
		return "About"
	case Skills:
		return "Skills"
	case Education:
		return "Education"
	case Projects:
		return "Projects"
	case Contact:
		return "Contact"
	}
	return string(id)
}
