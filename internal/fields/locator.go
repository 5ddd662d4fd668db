package fields

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/normalize"
)

// Located maps canonical field names to their raw located values. A field
// that was not found maps to "".
type Located map[string]string

// Get returns the value of a field, or "" when it was not located.
func (l Located) Get(name string) string {
	return l[name]
}

// Locator evaluates a compiled descriptor set against documents. It is
// immutable after construction and safe for concurrent use.
type Locator struct {
	fields     []*compiledField
	composites []Composite
}

type compiledField struct {
	desc     FieldDescriptor
	value    *regexp.Regexp
	variants []*labelVariant
}

type labelVariant struct {
	label    string
	sameLine *regexp.Regexp
	reversed *regexp.Regexp
	nextLine *regexp.Regexp
	keywords []string
}

// NewLocator compiles descriptors and composites. Descriptor names must be
// unique and every composite part must name a descriptor.
func NewLocator(descriptors []FieldDescriptor, composites []Composite) (*Locator, error) {
	l := &Locator{composites: composites}
	seen := make(map[string]bool, len(descriptors))

	for _, d := range descriptors {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate field descriptor %q", d.Name)
		}
		seen[d.Name] = true

		cf, err := compile(d)
		if err != nil {
			return nil, err
		}
		l.fields = append(l.fields, cf)
	}

	for _, c := range composites {
		if c.Name == "" || len(c.Parts) == 0 {
			return nil, fmt.Errorf("composite field %q has no parts", c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("composite field %q shadows a descriptor", c.Name)
		}
		for _, part := range c.Parts {
			if !seen[part] {
				return nil, fmt.Errorf("composite field %q: unknown part %q", c.Name, part)
			}
		}
	}
	return l, nil
}

// Names lists the fields a Locator produces, descriptors first.
func (l *Locator) Names() []string {
	names := make([]string, 0, len(l.fields)+len(l.composites))
	for _, f := range l.fields {
		names = append(names, f.desc.Name)
	}
	for _, c := range l.composites {
		names = append(names, c.Name)
	}
	return names
}

// LocateAll locates every field in normalized text. Each descriptor that
// matched nothing is reported as a FieldNotFound issue.
func (l *Locator) LocateAll(text string) (Located, []*errors.ExtractError) {
	located := make(Located, len(l.fields)+len(l.composites))
	var issues []*errors.ExtractError

	for _, f := range l.fields {
		value := f.locate(text)
		located[f.desc.Name] = value
		if value == "" {
			issues = append(issues, errors.NewExtractError(errors.ErrorTypeFieldNotFound,
				"no label variant matched").WithField(f.desc.Name))
		}
	}

	for _, c := range l.composites {
		parts := make([]string, 0, len(c.Parts))
		for _, name := range c.Parts {
			if v := located[name]; v != "" {
				parts = append(parts, v)
			}
		}
		located[c.Name] = strings.Join(parts, " ")
	}
	return located, issues
}

// Locate finds the value of a single descriptor in text. It returns "" when
// nothing matches or the descriptor is invalid.
func Locate(text string, d FieldDescriptor) string {
	cf, err := compile(d)
	if err != nil {
		return ""
	}
	return cf.locate(normalize.Normalize(text))
}

// labelEnd is the character that must follow a label, so that "Invoice No"
// does not match inside "Invoice Number".
const labelEnd = `[^\pL\pN\pM\n]`

func compile(d FieldDescriptor) (*compiledField, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cf := &compiledField{desc: d}
	if d.ValuePattern != "" {
		cf.value = regexp.MustCompile(d.ValuePattern)
	}

	labels := make([]string, 0, len(d.Labels)*2)
	for _, label := range d.Labels {
		labels = append(labels, normalize.Normalize(label))
	}
	if d.Reversed {
		for _, label := range labels[:len(d.Labels)] {
			labels = append(labels, Reverse(label))
		}
	}

	var keywords []string
	for _, k := range d.Keywords {
		if k = normalize.Normalize(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	for _, label := range labels {
		quoted := strings.ReplaceAll(regexp.QuoteMeta(label), " ", `\s+`)
		v := &labelVariant{
			label:    label,
			sameLine: regexp.MustCompile(`(?m)` + quoted + `(?:` + labelEnd + `[ \t]*:?[ \t]*|$)([^\n]*)`),
			reversed: regexp.MustCompile(`(?m)([^\n:]*?)[ \t]*:[ \t]*` + quoted + `(?:` + labelEnd + `|$)`),
			nextLine: regexp.MustCompile(quoted + `(?:` + labelEnd + `[ \t]*:?)?[ \t]*\n([^\n]*)`),
			keywords: keywords,
		}
		if len(v.keywords) == 0 {
			v.keywords = strings.Fields(label)
		}
		cf.variants = append(cf.variants, v)
	}
	return cf, nil
}

func (cf *compiledField) locate(text string) string {
	if text == "" {
		return ""
	}
	for _, v := range cf.variants {
		if value := cf.locateVariant(text, v); value != "" {
			return value
		}
	}
	return ""
}

func (cf *compiledField) locateVariant(text string, v *labelVariant) string {
	steps := []*regexp.Regexp{v.sameLine, v.reversed, v.nextLine}
	if cf.desc.Mode == ModeNextLine {
		steps = []*regexp.Regexp{v.nextLine, v.sameLine, v.reversed}
	}
	for _, re := range steps {
		if value := cf.firstCandidate(text, re); value != "" {
			return value
		}
	}
	if cf.desc.Mode == ModeWindowed {
		return cf.windowed(text, v.keywords)
	}
	return ""
}

// firstCandidate returns the first match of re, in document order, whose
// captured text yields a non-empty value.
func (cf *compiledField) firstCandidate(text string, re *regexp.Regexp) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if value := cf.shape(m[1]); value != "" {
			return value
		}
	}
	return ""
}

// shape trims a candidate and, when the descriptor has a value pattern,
// narrows it to the first pattern match.
func (cf *compiledField) shape(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || cf.value == nil {
		return candidate
	}
	return captured(cf.value.FindStringSubmatch(candidate))
}

func (cf *compiledField) windowed(text string, keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	window := cf.desc.Window
	if window == 0 {
		window = DefaultWindow
	}
	for _, loc := range cf.value.FindAllStringSubmatchIndex(text, -1) {
		from := backRunes(text, loc[0], window)
		to := forwardRunes(text, loc[1], window)
		if containsAll(text[from:to], keywords) {
			if value := strings.TrimSpace(capturedIndex(text, loc)); value != "" {
				return value
			}
		}
	}
	return ""
}

func captured(m []string) string {
	switch {
	case m == nil:
		return ""
	case len(m) > 1 && m[1] != "":
		return strings.TrimSpace(m[1])
	default:
		return strings.TrimSpace(m[0])
	}
}

func capturedIndex(text string, loc []int) string {
	if len(loc) > 3 && loc[2] >= 0 && loc[3] > loc[2] {
		return text[loc[2]:loc[3]]
	}
	return text[loc[0]:loc[1]]
}

func containsAll(s string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}

// backRunes returns the byte offset n runes before i.
func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// forwardRunes returns the byte offset n runes after i.
func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// Reverse returns s with its runes in reverse order.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
