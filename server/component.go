package server

import (
	"context"
	"sort"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/component"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
)

const componentName = "http-server"

var _ component.Component = (*Component)(nil)

// Component wraps Server for the component registry.
type Component struct {
	server *Server
}

// NewComponent returns a registry component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string { return componentName }

// Start starts the server and logs the registered routes.
func (c *Component) Start(ctx context.Context) error {
	if err := c.server.Start(ctx); err != nil {
		return err
	}
	for _, r := range c.server.Routes() {
		c.server.log.Debug("route", logger.Fields("method", r.Method, "path", r.Path))
	}
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

func (c *Component) Health(ctx context.Context) observability.Health {
	h := observability.Health{
		Name:    componentName,
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"addr": c.server.Addr()},
	}
	c.server.mu.Lock()
	started := c.server.listener != nil
	c.server.mu.Unlock()
	if !started {
		h.Status = observability.HealthStatusDown
		h.Message = "not listening"
	}
	return h
}

// Route is a registered HTTP route.
type Route struct {
	Method string
	Path   string
}

// systemPaths are the operational endpoints; they sort after API routes.
var systemPaths = map[string]bool{
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
	"/info":    true,
	"/metrics": true,
}

// Routes lists the registered routes, API routes first, then by path and
// method.
func (s *Server) Routes() []Route {
	ginRoutes := s.engine.Routes()
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	routes := make([]Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, Route{Method: strings.ToUpper(r.Method), Path: r.Path})
	}
	return routes
}

// methodOrder returns a sort key for HTTP methods (GET first, DELETE last).
func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
