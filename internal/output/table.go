// internal/output/table.go
package output

import (
	"fmt"
	"strconv"

	"github.com/valpere/FormScrapexter/internal/scraper"
)

// Fixed column names of the tabular layout
const (
	ColumnURL            = "url"
	ColumnDomain         = "domain"
	ColumnHasAdditional  = "HasAdditionalFields"
	ColumnHasCaptcha     = "HasCaptcha"
	ColumnError          = "error"
	additionalColPattern = "AdditionalField%d%s"
)

// Row is one page result flattened to the tabular layout
type Row map[string]string

// BaseColumns returns the columns every row has, in file order
func BaseColumns() []string {
	cols := []string{ColumnURL, ColumnDomain}
	for _, f := range scraper.Fields() {
		cols = append(cols, typeColumn(f), xpathColumn(f))
	}
	return append(cols, ColumnHasAdditional, ColumnHasCaptcha, ColumnError)
}

// Columns returns the base columns followed by n additional-field blocks
func Columns(n int) []string {
	cols := BaseColumns()
	for i := 1; i <= n; i++ {
		cols = append(cols,
			AdditionalColumn(i, "Name"),
			AdditionalColumn(i, "Type"),
			AdditionalColumn(i, "XPath"),
			AdditionalColumn(i, "Required"),
		)
	}
	return cols
}

// AdditionalColumn names part (Name, Type, XPath or Required) of the i-th
// additional field, counting from 1
func AdditionalColumn(i int, part string) string {
	return fmt.Sprintf(additionalColPattern, i, part)
}

func typeColumn(f scraper.Field) string  { return f.String() + "Type" }
func xpathColumn(f scraper.Field) string { return f.String() + "XPath" }

// Flatten converts a result to a row. Fields that were not found leave
// their columns empty.
func Flatten(r *scraper.PageResult) Row {
	row := Row{
		ColumnURL:           r.URL,
		ColumnDomain:        r.Domain,
		ColumnHasAdditional: formatBool(r.HasAdditionalFields()),
		ColumnHasCaptcha:    formatBool(r.HasCaptcha),
		ColumnError:         r.Error,
	}
	for _, f := range scraper.Fields() {
		m := r.Fields[f]
		if m.Found {
			row[typeColumn(f)] = m.Type
			row[xpathColumn(f)] = m.XPath
		} else {
			row[typeColumn(f)] = ""
			row[xpathColumn(f)] = ""
		}
	}
	for i, a := range r.AdditionalFields {
		n := i + 1
		row[AdditionalColumn(n, "Name")] = a.Name
		row[AdditionalColumn(n, "Type")] = a.Type
		row[AdditionalColumn(n, "XPath")] = a.XPath
		row[AdditionalColumn(n, "Required")] = formatBool(a.Required)
	}
	return row
}

// FlattenAll flattens results in order
func FlattenAll(results []*scraper.PageResult) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Flatten(r))
	}
	return rows
}

// AdditionalCount returns the number of leading additional-field blocks
// with a name
func (r Row) AdditionalCount() int {
	n := 0
	for r[AdditionalColumn(n+1, "Name")] != "" {
		n++
	}
	return n
}

// Values returns the row's values in column order
func (r Row) Values(columns []string) []string {
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = r[c]
	}
	return values
}

// MaxAdditional returns the widest additional-field block among rows
func MaxAdditional(rows []Row) int {
	widest := 0
	for _, r := range rows {
		widest = max(widest, r.AdditionalCount())
	}
	return widest
}

// Merge keeps prior rows whose URL is not in results, in their original
// order, followed by the flattened results
func Merge(prior []Row, results []*scraper.PageResult) []Row {
	fresh := make(map[string]bool, len(results))
	for _, r := range results {
		fresh[r.URL] = true
	}
	rows := make([]Row, 0, len(prior)+len(results))
	for _, p := range prior {
		if !fresh[p[ColumnURL]] {
			rows = append(rows, p)
		}
	}
	return append(rows, FlattenAll(results)...)
}

// Booleans are written the way the downstream conversion tools expect
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
