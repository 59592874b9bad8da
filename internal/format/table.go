package format

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Row is one record of a table, keyed by column key.
type Row map[string]string

var digitsOnly = regexp.MustCompile(`^\d+$`)

// FormatArray renders rows as a striped table. formatters, labels and keys
// are parallel per column: the column value is row[keys[d]] rendered with
// formatters[d]. Labels may be nil to omit the header.
func (f *Formatter) FormatArray(rows []Row, formatters, labels, keys []string) (string, error) {
	return f.table(len(rows), formatters, labels, func(i, d int) string {
		if d < len(keys) && keys[d] != "" {
			return rows[i][keys[d]]
		}
		return ""
	})
}

// FormatList renders a plain list of values, every column showing the item
// itself through its own formatter.
func (f *Formatter) FormatList(items []string, formatters, labels []string) (string, error) {
	return f.table(len(items), formatters, labels, func(i, _ int) string {
		return items[i]
	})
}

// FormatObject renders the fields of obj as an Item/Value table. Keys made
// only of digits are skipped; the rest are capitalized. Keys are sorted.
func (f *Formatter) FormatObject(obj map[string]any) (string, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if digitsOnly.MatchString(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Row{
			"item":  capitalize(k),
			"value": Stringify(obj[k]),
		})
	}
	return f.FormatArray(rows,
		[]string{"Strong", "Text-20-5"},
		[]string{"Item", "Value"},
		[]string{"item", "value"})
}

func (f *Formatter) table(n int, formatters, labels []string, cell func(i, d int) string) (string, error) {
	specs := make([]Spec, len(formatters))
	for d, name := range formatters {
		spec, err := ParseFormatter(name)
		if err != nil {
			return "", err
		}
		specs[d] = spec
	}

	var b strings.Builder
	b.WriteString(`<table class="table table-striped">`)
	if labels != nil {
		b.WriteString("<thead><tr>")
		for _, label := range labels {
			b.WriteString(`<th scope="col">` + label + "</th>")
		}
		b.WriteString("</tr></thead>")
	}
	b.WriteString("<tbody>")
	for i := 0; i < n; i++ {
		b.WriteString("<tr>")
		for d, spec := range specs {
			text := cell(i, d)
			if !strings.HasPrefix(text, "<") {
				text = f.Cell(spec, text, text)
			}
			if d == 0 {
				b.WriteString(`<th scope="row">` + text + "</th>")
			} else {
				b.WriteString("<td>" + text + "</td>")
			}
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String(), nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
