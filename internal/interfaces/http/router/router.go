// Package router assembles the gin engine of the BFF.
package router

import (
	"github.com/gin-gonic/gin"
)

// APIPrefix is where the authenticated routes live
const APIPrefix = "/api/v1"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type mount struct {
	prefix     string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// Router collects registrars per path prefix and installs them on Setup
type Router struct {
	engine *gin.Engine
	mounts []mount
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine) *Router {
	return &Router{engine: engine}
}

// Mount schedules registrars under prefix behind the given group middleware.
// Nil registrars are skipped.
func (r *Router) Mount(prefix string, middleware []gin.HandlerFunc, registrars ...RouteRegistrar) *Router {
	m := mount{prefix: prefix, middleware: middleware}
	for _, reg := range registrars {
		if reg != nil {
			m.registrars = append(m.registrars, reg)
		}
	}
	r.mounts = append(r.mounts, m)
	return r
}

// Setup registers every mounted registrar, in mount order
func (r *Router) Setup() {
	for _, m := range r.mounts {
		if len(m.registrars) == 0 {
			continue
		}
		group := r.engine.Group(m.prefix, m.middleware...)
		for _, reg := range m.registrars {
			reg.RegisterRoutes(group)
		}
	}
}
