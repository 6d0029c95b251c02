package pgassist

import (
	"context"
	"strconv"

	"github.com/datavolt/pgassist/internal/resource"
)

// newRouter registers the resource templates in a deterministic order.
// Every handler is a pure read with no side effects.
func (s *Server) newRouter() *resource.Router {
	r := resource.NewRouter()
	r.Register("schema://tables/{table_name}", nil, s.schemaResource)
	r.Register("data://tables/{table_name}", map[string]string{
		"limit":  strconv.Itoa(s.config.Query.DefaultLimit),
		"offset": "0",
	}, s.dataResource)
	r.Register("stats://tables/{table_name}", nil, s.statsResource)
	return r
}

// ReadResource resolves a resource URI through the router and invokes the
// matched handler with bound parameters.
func (s *Server) ReadResource(ctx context.Context, uri string) (any, error) {
	handler, params, err := s.router.Resolve(uri)
	if err != nil {
		return nil, err
	}
	return handler(ctx, params)
}

// ResourceTemplates returns the registered templates in registration order.
func (s *Server) ResourceTemplates() []string {
	return s.router.Templates()
}

func (s *Server) schemaResource(ctx context.Context, params resource.Params) (any, error) {
	return s.DescribeTable(ctx, params["table_name"])
}

func (s *Server) dataResource(ctx context.Context, params resource.Params) (any, error) {
	limit, err := params.Int("limit")
	if err != nil {
		return nil, err
	}
	offset, err := params.Int("offset")
	if err != nil {
		return nil, err
	}
	return s.TableData(ctx, params["table_name"], limit, offset)
}

func (s *Server) statsResource(ctx context.Context, params resource.Params) (any, error) {
	return s.TableStats(ctx, params["table_name"])
}
