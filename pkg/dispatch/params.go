package dispatch

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
)

// rawParam returns the raw string values of one declared parameter.
func rawParam(r *http.Request, prm contract.Parameter) ([]string, bool) {
	switch prm.In {
	case contract.InQuery:
		v, ok := r.URL.Query()[prm.Name]
		return v, ok && len(v) > 0
	case contract.InPath:
		v := chi.URLParam(r, prm.Name)
		return []string{v}, v != ""
	case contract.InHeader:
		v := r.Header.Values(prm.Name)
		return v, len(v) > 0
	case contract.InCookie:
		c, err := r.Cookie(prm.Name)
		if err != nil {
			return nil, false
		}
		return []string{c.Value}, true
	}
	return nil, false
}

// coerce converts raw strings to the JSON type the schema declares so they
// can be validated like a body value. Arrays accept repeated parameters or
// one comma-separated value.
func coerce(raw []string, typ, itemType string) (any, error) {
	if typ == "array" {
		var parts []string
		for _, v := range raw {
			parts = append(parts, strings.Split(v, ",")...)
		}
		out := make([]any, 0, len(parts))
		for _, s := range parts {
			v, err := scalar(s, itemType)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return scalar(raw[0], typ)
}

func scalar(s, typ string) (any, error) {
	switch typ {
	case "integer":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case "number":
		f, err := strconv.ParseFloat(s, 64)
		// NaN and Inf parse but have no JSON form.
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	default:
		return s, nil
	}
}
