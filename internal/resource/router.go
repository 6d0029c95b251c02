// Package resource maps templated addresses (literal segments plus named
// placeholders, e.g. "schema://tables/{table_name}") to handler functions.
// Each template is compiled to an anchored pattern with named captures;
// matchers are evaluated in registration order, first match wins.
package resource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoMatch is returned by Resolve when no registered template matches.
var ErrNoMatch = errors.New("no matching resource")

// Params holds bound template and query parameters for one resolution.
type Params map[string]string

// Int parses the named parameter as an integer.
func (p Params) Int(key string) (int, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer, got %q", key, raw)
	}
	return n, nil
}

// Handler produces a resource payload. Handlers must be independently
// invocable — no shared mutable state between resource reads.
type Handler func(ctx context.Context, params Params) (any, error)

type route struct {
	template string
	pattern  *regexp.Regexp
	defaults map[string]string
	handler  Handler
}

// Router resolves resource URIs against registered templates.
// Registration happens once at construction; Resolve is safe for
// concurrent use afterwards.
type Router struct {
	routes []route
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{}
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Register compiles the template and appends it to the matcher list.
// defaults declares optional query-style parameters with their default
// values. Panics on an unparseable template (construction-time error).
func (r *Router) Register(template string, defaults map[string]string, h Handler) {
	r.routes = append(r.routes, route{
		template: template,
		pattern:  compileTemplate(template),
		defaults: defaults,
		handler:  h,
	})
}

// compileTemplate turns "data://tables/{table_name}" into an anchored
// regexp where each placeholder becomes a named capture matching one
// path segment.
func compileTemplate(template string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		sb.WriteString(regexp.QuoteMeta(template[last:m[0]]))
		sb.WriteString("(?P<" + template[m[2]:m[3]] + ">[^/?#]+)")
		last = m[1]
	}
	sb.WriteString(regexp.QuoteMeta(template[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		panic(fmt.Sprintf("resource: invalid template %q: %v", template, err))
	}
	return re
}

// Resolve matches the URI against registered templates in registration
// order. Bound parameters are built up as: declared defaults, then query
// parameters, then path captures — path captures always win so a query
// string can never override a template binding.
func (r *Router) Resolve(uri string) (Handler, Params, error) {
	path := uri
	rawQuery := ""
	if i := strings.Index(uri, "?"); i >= 0 {
		path, rawQuery = uri[:i], uri[i+1:]
	}

	for _, rt := range r.routes {
		m := rt.pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}

		params := Params{}
		for k, v := range rt.defaults {
			params[k] = v
		}
		if rawQuery != "" {
			values, err := url.ParseQuery(rawQuery)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid query parameters in %q: %w", uri, err)
			}
			for k, vs := range values {
				if len(vs) > 0 {
					params[k] = vs[0]
				}
			}
		}
		for i, name := range rt.pattern.SubexpNames() {
			if i > 0 && name != "" {
				params[name] = m[i]
			}
		}
		return rt.handler, params, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNoMatch, uri)
}

// Templates returns the registered templates in registration order.
func (r *Router) Templates() []string {
	templates := make([]string, len(r.routes))
	for i, rt := range r.routes {
		templates[i] = rt.template
	}
	return templates
}
