// Package params maps InputParameters to and from URL query parameters.
package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/opensource-finance/tally/internal/domain"
)

// Encode renders p as a query string with one key per field, in canonical
// field order. Values use the shortest representation that parses back to
// the same float64.
func Encode(p domain.InputParameters) string {
	var b strings.Builder
	for i, f := range domain.Fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(string(f)))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(FormatValue(p.Get(f))))
	}
	return b.String()
}

// Values returns p as url.Values.
func Values(p domain.InputParameters) url.Values {
	v := make(url.Values, len(domain.Fields))
	for _, f := range domain.Fields {
		v.Set(string(f), FormatValue(p.Get(f)))
	}
	return v
}

// FormatValue formats a stored value as a decimal string.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Decode overrides base with the fields present in values. Each field falls
// back to its base value independently when it is absent, not a number, not
// finite or not positive. overridden reports whether values was non-empty,
// which is what triggers an override pass at all.
func Decode(values url.Values, base domain.InputParameters) (p domain.InputParameters, overridden bool) {
	return decode(values, base, false)
}

// DecodeDisplay is Decode for values entered in display units, the way the
// calculator form submits them.
func DecodeDisplay(values url.Values, base domain.InputParameters) (p domain.InputParameters, overridden bool) {
	return decode(values, base, true)
}

func decode(values url.Values, base domain.InputParameters, display bool) (domain.InputParameters, bool) {
	if len(values) == 0 {
		return base, false
	}

	p := base
	for _, f := range domain.Fields {
		v, ok := parseValue(values.Get(string(f)))
		if !ok {
			continue
		}
		if display {
			v = f.ToStored(v)
		}
		if next, err := p.With(f, v); err == nil {
			p = next
		}
	}
	return p, true
}

// DecodeQuery parses a raw query string and decodes it over base.
func DecodeQuery(rawQuery string, base domain.InputParameters) (domain.InputParameters, bool, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return base, false, err
	}
	p, overridden := Decode(values, base)
	return p, overridden, nil
}

// ShareURL composes scheme://host/path?query for p. Any query or fragment
// already on base is replaced.
func ShareURL(base *url.URL, p domain.InputParameters) string {
	u := url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     base.Path,
		RawQuery: Encode(p),
	}
	return u.String()
}

func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
