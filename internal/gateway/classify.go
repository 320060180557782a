package gateway

import "strings"

// RouteClass is the handling decision for one request path.
type RouteClass string

const (
	// RouteBackend forwards the request to the backend origin unmodified.
	RouteBackend RouteClass = "backend"
	// RouteStatic resolves the path against the built asset bundle.
	RouteStatic RouteClass = "static"
	// RouteAppShell serves the application shell document so client-side
	// routing can handle deep links.
	RouteAppShell RouteClass = "app_shell"
)

const (
	healthPath = "/health"
	apiPrefix  = "/v1"
)

// Classify maps a request path to its route class. First match wins:
// the health-check path and anything under the versioned API prefix go
// to the backend; an existing asset is served as-is; everything else
// falls back to the app shell. assetExists may be nil.
func Classify(path string, assetExists func(string) bool) RouteClass {
	if path == healthPath || strings.HasPrefix(path, apiPrefix) {
		return RouteBackend
	}
	if assetExists != nil && assetExists(path) {
		return RouteStatic
	}
	return RouteAppShell
}
