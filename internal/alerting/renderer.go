package alerting

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// placeholderPattern matches {key} and {key:format}. The format suffix is
// accepted and ignored.
var placeholderPattern = regexp.MustCompile(`\{(\w+)(?::([^}]*))?\}`)

// missingValue is rendered for placeholders with no value.
const missingValue = "N/A"

var comparisonCatalog = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.French))
	set := func(tag language.Tag, key Comparison, msg string) {
		_ = b.SetString(tag, string(key), msg)
	}
	set(language.French, LessThan, "inférieur à")
	set(language.French, GreaterThan, "supérieur à")
	set(language.French, Equals, "égal à")
	set(language.French, LessThanOrEqual, "inférieur ou égal à")
	set(language.French, GreaterThanOrEqual, "supérieur ou égal à")
	set(language.English, LessThan, "less than")
	set(language.English, GreaterThan, "greater than")
	set(language.English, Equals, "equal to")
	set(language.English, LessThanOrEqual, "less than or equal to")
	set(language.English, GreaterThanOrEqual, "greater than or equal to")
	return b
}()

var dateLayouts = map[language.Base]string{
	mustBase(language.French):  "02/01/2006 à 15:04",
	mustBase(language.English): "Jan 2, 2006 at 15:04",
}

func mustBase(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// Renderer fills message templates with collected variables, formatting
// values for one locale and time zone.
type Renderer struct {
	tag     language.Tag
	printer *message.Printer
	loc     *time.Location
}

// NewRenderer creates a renderer for locale (a BCP 47 tag). Unparseable
// locales fall back to French and a nil location to UTC.
func NewRenderer(locale string, loc *time.Location) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.French
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(comparisonCatalog)),
		loc:     loc,
	}
}

// Render substitutes every placeholder in tpl. Keys are looked up in vars
// first and then in the rule's conditions; unknown keys render as N/A.
func (r *Renderer) Render(tpl string, vars, conditions map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[key]
		if !ok {
			value, ok = conditions[key]
		}
		if !ok || value == nil {
			return missingValue
		}
		return r.format(key, value)
	})
}

// ComparisonLabel returns the localized phrase of an operator. Unknown
// operators are returned as is.
func (r *Renderer) ComparisonLabel(c Comparison) string {
	return r.printer.Sprintf(string(c))
}

func (r *Renderer) format(key string, value any) string {
	if key == "comparison" {
		if s, ok := value.(string); ok {
			return r.ComparisonLabel(Comparison(s))
		}
	}
	if strings.Contains(key, "Date") {
		if formatted, ok := r.formatDate(value); ok {
			return formatted
		}
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return fmt.Sprint(v)
	case []string:
		if len(v) == 0 {
			return missingValue
		}
		return strings.Join(v, ", ")
	case Scalar:
		return r.format(key, v.Any())
	}

	if f, ok := toFloat64(value); ok {
		if strings.Contains(key, "Percent") {
			return r.printer.Sprint(number.Decimal(f, number.MinFractionDigits(1), number.MaxFractionDigits(1))) + "%"
		}
		return r.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
	}
	return fmt.Sprint(value)
}

func (r *Renderer) formatDate(value any) (string, bool) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return "", false
		}
		t = *v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", false
		}
		t = parsed
	default:
		return "", false
	}

	layout, ok := dateLayouts[mustBase(r.tag)]
	if !ok {
		layout = "2006-01-02 15:04"
	}
	return t.In(r.loc).Format(layout), true
}
