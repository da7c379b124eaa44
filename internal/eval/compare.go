package eval

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/iscc/iscc-metagen/internal/metadata"
)

// FieldComparison scores one metadata field against its reference value.
type FieldComparison struct {
	Field    string  `json:"field"`
	Expected string  `json:"expected"`
	Actual   string  `json:"actual"`
	Score    float64 `json:"score"`    // 0.0 to 1.0
	Distance int     `json:"distance"` // Levenshtein distance
	Match    string  `json:"match"`    // "exact", "fuzzy_high", "fuzzy_medium", "fuzzy_low", "no_match", "missing", ...
}

// Comparison is the field-by-field result for one record.
type Comparison struct {
	Fields          map[string]FieldComparison `json:"fields"`
	OverallScore    float64                    `json:"overall_score"`
	FieldsMatched   int                        `json:"fields_matched"`
	FieldsMissing   int                        `json:"fields_missing"`
	FieldsIncorrect int                        `json:"fields_incorrect"`
}

// Catalog language codes are ISO 639-3, generated metadata is ISO 639-1.
var iso3to1 = map[string]string{
	"eng": "en", "ger": "de", "deu": "de", "fre": "fr", "fra": "fr",
	"spa": "es", "ita": "it", "dut": "nl", "nld": "nl", "por": "pt",
	"rus": "ru", "jpn": "ja", "chi": "zh", "zho": "zh", "lat": "la",
	"swe": "sv", "dan": "da", "nor": "no", "pol": "pl", "cze": "cs",
	"ces": "cs", "hun": "hu", "gre": "el", "ell": "el", "ara": "ar",
	"heb": "he", "tur": "tr", "fin": "fi",
}

// Compare scores generated metadata against a reference record.
func Compare(ref Record, m *metadata.BookMetadata) *Comparison {
	c := &Comparison{Fields: make(map[string]FieldComparison)}

	c.add(compareField("title", ref.Title, m.Title))
	c.add(compareAuthor(ref.Author, primaryAuthor(m)))
	c.add(compareField("year", yearOf(ref.Date1), yearString(m.YearPublished)))
	refLang := iso3to1[strings.ToLower(ref.Language)]
	if refLang == "" {
		// Unmapped codes fall back to fuzzy comparison of the raw values.
		refLang = strings.ToLower(ref.Language)
	}
	c.add(compareField("language", refLang, strings.ToLower(m.Language)))
	c.add(compareField("isbn", firstISBN(ref), firstGeneratedISBN(m)))
	c.add(compareKeywords(ref.Topic, m.Keywords))

	total := 0.0
	for _, f := range c.Fields {
		total += f.Score
	}
	c.OverallScore = total / float64(len(c.Fields))
	return c
}

func (c *Comparison) add(f FieldComparison) {
	c.Fields[f.Field] = f
	switch {
	case f.Score > 0.8:
		c.FieldsMatched++
	case f.Actual == "" && f.Expected != "":
		c.FieldsMissing++
	case f.Expected != "":
		c.FieldsIncorrect++
	}
}

func primaryAuthor(m *metadata.BookMetadata) string {
	for _, contrib := range m.Contributors {
		if strings.EqualFold(contrib.Role, "author") {
			return contrib.Name
		}
	}
	if len(m.Contributors) > 0 {
		return m.Contributors[0].Name
	}
	return ""
}

func yearOf(date string) string {
	if len(date) >= 4 {
		if _, err := strconv.Atoi(date[:4]); err == nil {
			return date[:4]
		}
	}
	return ""
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func firstISBN(r Record) string {
	if len(r.ISBN) > 0 {
		return normalizeISBN(r.ISBN[0])
	}
	return ""
}

func firstGeneratedISBN(m *metadata.BookMetadata) string {
	if len(m.ISBNs) > 0 {
		return normalizeISBN(m.ISBNs[0].ISBN)
	}
	return ""
}

func normalizeISBN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

// compareAuthor sorts name tokens before comparing; catalog names are
// inverted ("Meadows, Donella H.") while generated ones are not.
func compareAuthor(expected, actual string) FieldComparison {
	comp := compareField("author", sortTokens(expected), sortTokens(actual))
	comp.Expected = expected
	comp.Actual = actual
	return comp
}

func sortTokens(s string) string {
	tokens := strings.Fields(normalizeText(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// compareKeywords scores generated keywords against the catalog topic by the
// best keyword hit: a keyword contained in the topic (or vice versa) counts
// as a match.
func compareKeywords(topic string, keywords []string) FieldComparison {
	comp := compareField("keywords", topic, strings.Join(keywords, ", "))
	if comp.Expected == "" || len(keywords) == 0 {
		return comp
	}

	topicNorm := normalizeText(topic)
	best := comp.Score
	for _, kw := range keywords {
		kwNorm := normalizeText(kw)
		if kwNorm == "" {
			continue
		}
		if strings.Contains(topicNorm, kwNorm) || strings.Contains(kwNorm, topicNorm) {
			best = 1.0
			comp.Match = "substring"
			break
		}
	}
	comp.Score = best
	return comp
}

// compareField scores a single field using Levenshtein distance on
// normalized text.
func compareField(name, expected, actual string) FieldComparison {
	comp := FieldComparison{Field: name, Expected: expected, Actual: actual}

	expNorm := normalizeText(expected)
	actNorm := normalizeText(actual)

	switch {
	case expNorm == "" && actNorm == "":
		comp.Score = 0.5
		comp.Match = "both_empty"
		return comp
	case expNorm == "":
		comp.Distance = len(actNorm)
		comp.Match = "no_reference"
		return comp
	case actNorm == "":
		comp.Distance = len(expNorm)
		comp.Match = "missing"
		return comp
	}

	distance := levenshteinDistance(expNorm, actNorm)
	comp.Distance = distance

	if expNorm == actNorm {
		comp.Score = 1.0
		comp.Match = "exact"
		return comp
	}

	maxLen := max(len(expNorm), len(actNorm))
	similarity := 1.0 - float64(distance)/float64(maxLen)
	comp.Score = similarity

	switch {
	case similarity > 0.9:
		comp.Match = "fuzzy_high"
	case similarity > 0.7:
		comp.Match = "fuzzy_medium"
	case similarity > 0.5:
		comp.Match = "fuzzy_low"
	default:
		comp.Match = "no_match"
	}
	return comp
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = strings.Join(strings.Fields(text), " ")
	text = punctuation.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	rows := len(s1) + 1
	cols := len(s2) + 1
	matrix := make([][]int, rows)
	for i := range matrix {
		matrix[i] = make([]int, cols)
		matrix[i][0] = i
	}
	for j := 0; j < cols; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[rows-1][cols-1]
}

// String renders a short human-readable summary.
func (c *Comparison) String() string {
	return fmt.Sprintf("score=%.2f matched=%d missing=%d incorrect=%d",
		c.OverallScore, c.FieldsMatched, c.FieldsMissing, c.FieldsIncorrect)
}
