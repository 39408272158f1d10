// Package query parses collection parameters (search, ordering, pagination)
// shared by every list endpoint.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// OrderTerm is one validated ORDER BY element.
type OrderTerm struct {
	Column string
	Desc   bool
}

// SQL renders the term for an ORDER BY clause.
func (o OrderTerm) SQL() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

// ParseOrdering turns "price,-created_at" into order terms. Fields that are not
// in allowed (param name -> column) are skipped.
func ParseOrdering(raw string, allowed map[string]string) []OrderTerm {
	var terms []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		field := strings.TrimSpace(part)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		column, ok := allowed[field]
		if !ok {
			continue
		}
		terms = append(terms, OrderTerm{Column: column, Desc: desc})
	}
	return terms
}

// OrderBy joins terms; when terms is empty the fallback terms are used instead.
func OrderBy(terms []OrderTerm, fallback ...OrderTerm) string {
	if len(terms) == 0 {
		terms = fallback
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t.SQL())
	}
	return strings.Join(parts, ", ")
}

// SearchTerms splits a search string on whitespace and commas.
func SearchTerms(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// SearchCondition builds "(a ILIKE $n OR b ILIKE $n) AND ..." for each term,
// appending the bound patterns to args.
func SearchCondition(raw string, columns []string, args []interface{}) (string, []interface{}) {
	terms := SearchTerms(raw)
	if len(terms) == 0 || len(columns) == 0 {
		return "", args
	}
	clauses := make([]string, 0, len(terms))
	for _, term := range terms {
		args = append(args, "%"+escapeLike(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		ors := make([]string, 0, len(columns))
		for _, col := range columns {
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, placeholder))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// ParsePage returns the requested page number. Missing means page 1.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page %q", raw)
	}
	return page, nil
}

// ParsePageSize falls back to the default for missing or malformed values and
// caps at MaxPageSize.
func ParsePageSize(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// ParseBool accepts the usual true/false spellings. An empty value yields nil.
func ParseBool(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1", "yes", "on":
		v := true
		return &v, nil
	case "false", "0", "no", "off":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("%q is not a boolean", raw)
	}
}

// ParseInt64 parses an optional integer parameter. An empty value yields nil.
func ParseInt64(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", raw)
	}
	return &v, nil
}
