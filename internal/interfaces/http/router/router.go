package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authorizer returns the middleware enforcing scope on one route
type Authorizer func(scope string) gin.HandlerFunc

// Router mounts resource groups under /api/<version>. Write routes are
// guarded by the authorizer; every route then runs routeMW before its
// handler.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	authorize  Authorizer
	routeMW    []gin.HandlerFunc
	groups     []*ResourceGroup
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAuthorizer guards write routes. Without one every route is open.
func WithAuthorizer(authorize Authorizer) RouterOption {
	return func(r *Router) {
		r.authorize = authorize
	}
}

// WithRouteMiddleware adds middleware that runs on every mounted route
// after authorization
func WithRouteMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.routeMW = append(r.routeMW, mw...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds groups to be mounted by Setup
func (r *Router) Register(groups ...*ResourceGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, g := range r.groups {
		rg := api.Group(g.prefix)
		for _, rt := range g.routes {
			rg.Handle(rt.method, rt.path, r.chain(rt)...)
		}
	}
}

func (r *Router) chain(rt route) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(r.routeMW)+2)
	if rt.scope != "" && r.authorize != nil {
		chain = append(chain, r.authorize(rt.scope))
	}
	chain = append(chain, r.routeMW...)
	return append(chain, rt.handler)
}

// ResourceGroup collects the routes of one resource
type ResourceGroup struct {
	name   string
	prefix string
	routes []route
}

type route struct {
	method  string
	path    string
	scope   string
	handler gin.HandlerFunc
}

// NewResourceGroup creates a group mounted at prefix
func NewResourceGroup(name, prefix string) *ResourceGroup {
	return &ResourceGroup{name: name, prefix: prefix}
}

// Read registers an open GET route
func (g *ResourceGroup) Read(path string, handler gin.HandlerFunc) *ResourceGroup {
	g.routes = append(g.routes, route{method: http.MethodGet, path: path, handler: handler})
	return g
}

// Write registers a POST route that requires scope
func (g *ResourceGroup) Write(path, scope string, handler gin.HandlerFunc) *ResourceGroup {
	g.routes = append(g.routes, route{method: http.MethodPost, path: path, scope: scope, handler: handler})
	return g
}

// Name returns the group name
func (g *ResourceGroup) Name() string {
	return g.name
}

// Prefix returns the group prefix
func (g *ResourceGroup) Prefix() string {
	return g.prefix
}

// Scopes lists the distinct scopes required by the group's write routes
func (g *ResourceGroup) Scopes() []string {
	var scopes []string
	seen := make(map[string]bool)
	for _, rt := range g.routes {
		if rt.scope != "" && !seen[rt.scope] {
			seen[rt.scope] = true
			scopes = append(scopes, rt.scope)
		}
	}
	return scopes
}
