// Package thema provides the EDItEUR Thema subject category vocabulary and
// LLM-backed category prediction for documents.
package thema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version of the Thema vocabulary this tool targets.
const Version = "1.5"

// flexString accepts both JSON strings and numbers; the published Thema
// JSON mixes the two for some fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Code is one Thema category.
type Code struct {
	Value       string
	Heading     string
	Notes       string
	Parent      string
	IssueNumber string
	Modified    string
}

func (c *Code) UnmarshalJSON(data []byte) error {
	var raw struct {
		CodeValue       flexString `json:"CodeValue"`
		CodeDescription string     `json:"CodeDescription"`
		CodeNotes       string     `json:"CodeNotes"`
		CodeParent      flexString `json:"CodeParent"`
		IssueNumber     flexString `json:"IssueNumber"`
		Modified        flexString `json:"Modified"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Code{
		Value:       string(raw.CodeValue),
		Heading:     raw.CodeDescription,
		Notes:       raw.CodeNotes,
		Parent:      string(raw.CodeParent),
		IssueNumber: string(raw.IssueNumber),
		Modified:    string(raw.Modified),
	}
	return nil
}

// Thema is the loaded category tree.
type Thema struct {
	Codes  []Code
	byCode map[string]*Code
}

// Parse reads the published Thema JSON document.
func Parse(data []byte) (*Thema, error) {
	var doc struct {
		CodeList struct {
			ThemaCodes struct {
				Code []Code `json:"Code"`
			} `json:"ThemaCodes"`
		} `json:"CodeList"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse thema json: %w", err)
	}
	codes := doc.CodeList.ThemaCodes.Code
	if len(codes) == 0 {
		return nil, fmt.Errorf("thema json contains no codes")
	}

	t := &Thema{
		Codes:  codes,
		byCode: make(map[string]*Code, len(codes)),
	}
	for i := range t.Codes {
		t.byCode[t.Codes[i].Value] = &t.Codes[i]
	}
	return t, nil
}

// Lookup returns the code for a category value.
func (t *Thema) Lookup(value string) (*Code, bool) {
	c, ok := t.byCode[value]
	return c, ok
}

// MainSubjects returns the top-level subject headings: single-letter
// alphabetic codes. National extensions and qualifiers are excluded.
func (t *Thema) MainSubjects() []Code {
	var out []Code
	for _, c := range t.Codes {
		if len(c.Value) == 1 && c.Value[0] >= 'A' && c.Value[0] <= 'Z' {
			out = append(out, c)
		}
	}
	return out
}

// SubCategories returns the direct children of a category.
func (t *Thema) SubCategories(parent string) []Code {
	var out []Code
	for _, c := range t.Codes {
		if c.Parent == parent && c.Value != parent {
			out = append(out, c)
		}
	}
	return out
}

// FullHeading builds the slash-joined heading path from the root to the
// given code.
func (t *Thema) FullHeading(c *Code) string {
	if c.Parent != "" {
		if parent, ok := t.byCode[c.Parent]; ok {
			return t.FullHeading(parent) + " / " + c.Heading
		}
	}
	return c.Heading
}

// BuildDocs renders one retrieval document per code: the full heading path
// plus the code notes. Used for vector indexing.
func (t *Thema) BuildDocs() []string {
	docs := make([]string, len(t.Codes))
	for i := range t.Codes {
		c := &t.Codes[i]
		doc := t.FullHeading(c)
		if c.Notes != "" {
			doc += "\n" + c.Notes
		}
		docs[i] = doc
	}
	return docs
}

// RenderList formats codes as "CODE: heading" lines for prompts.
func RenderList(codes []Code) string {
	var b strings.Builder
	for _, c := range codes {
		fmt.Fprintf(&b, "%s: %s\n", c.Value, c.Heading)
	}
	return b.String()
}
