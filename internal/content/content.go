// Package content holds the static data rendered into the portfolio page.
package content

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultYAML []byte

type Fact struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

type Skill struct {
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	Category    string `yaml:"category"`
	Experience  int    `yaml:"experience"`
	Description string `yaml:"description"`
}

// TimelineEntry is one item of the education or experience tab.
type TimelineEntry struct {
	Year        string `yaml:"year"`
	Title       string `yaml:"title"`
	Institution string `yaml:"institution"`
	Description string `yaml:"description"`
}

type Timeline struct {
	Tab      string          `yaml:"tab"`
	Title    string          `yaml:"title"`
	Subtitle string          `yaml:"subtitle"`
	Entries  []TimelineEntry `yaml:"entries"`
}

type Project struct {
	ID           int      `yaml:"id"`
	Title        string   `yaml:"title"`
	Short        string   `yaml:"short"`
	Description  string   `yaml:"description"`
	Role         string   `yaml:"role"`
	Duration     string   `yaml:"duration"`
	Recent       bool     `yaml:"recent"`
	Features     []string `yaml:"features"`
	Technologies []string `yaml:"technologies"`
	Learnings    []string `yaml:"learnings"`
}

// techOnCard is how many technologies fit on a project card; the rest are
// summarized as "+N more".
const techOnCard = 3

func (p Project) CardTechnologies() []string {
	if len(p.Technologies) <= techOnCard {
		return p.Technologies
	}
	return p.Technologies[:techOnCard]
}

func (p Project) MoreTechnologies() int {
	return max(0, len(p.Technologies)-techOnCard)
}

// ContactInfo is a way to reach the owner. Copy is the value placed on the
// clipboard, which can differ from what is displayed.
type ContactInfo struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	Copy  string `yaml:"copy"`
	Href  string `yaml:"href"`
}

type Portfolio struct {
	Facts    []Fact        `yaml:"facts"`
	Social   []Link        `yaml:"social"`
	Skills   []Skill       `yaml:"skills"`
	Timeline []Timeline    `yaml:"timeline"`
	Projects []Project     `yaml:"projects"`
	Contact  []ContactInfo `yaml:"contact"`
}

// SkillGroup is the skills of one category, in first-seen order.
type SkillGroup struct {
	Category string
	Skills   []Skill
}

func (p *Portfolio) SkillGroups() []SkillGroup {
	var groups []SkillGroup
	for _, s := range p.Skills {
		i := slices.IndexFunc(groups, func(g SkillGroup) bool { return g.Category == s.Category })
		if i < 0 {
			groups = append(groups, SkillGroup{Category: s.Category})
			i = len(groups) - 1
		}
		groups[i].Skills = append(groups[i].Skills, s)
	}
	return groups
}

// ContactByLabel looks up a contact entry.
func (p *Portfolio) ContactByLabel(label string) (ContactInfo, bool) {
	for _, c := range p.Contact {
		if c.Label == label {
			return c, true
		}
	}
	return ContactInfo{}, false
}

// Load returns the built-in portfolio data.
func Load() (*Portfolio, error) {
	return Parse(defaultYAML)
}

// Parse decodes portfolio data from YAML.
func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse portfolio content: %w", err)
	}
	for i, c := range p.Contact {
		if c.Copy == "" {
			p.Contact[i].Copy = c.Value
		}
	}
	return &p, nil
}
