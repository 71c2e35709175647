// Package factory creates router implementations from configuration.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	ginadapter "github.com/ponzu-dev/ponzu-back/pkg/server/router/gin"
	gorillaadapter "github.com/ponzu-dev/ponzu-back/pkg/server/router/gorilla"
	nethttpadapter "github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

var supported = map[string]func() router.Router{
	config.RouterNetHTTP: func() router.Router { return nethttpadapter.NewRouter() },
	config.RouterGin:     func() router.Router { return ginadapter.NewRouter() },
	config.RouterGorilla: func() router.Router { return gorillaadapter.NewRouter() },
}

// NewRouter creates the router selected by router_type. Empty selects net/http.
func NewRouter(routerType string) (router.Router, error) {
	rt := strings.TrimSpace(strings.ToLower(routerType))
	if rt == "" {
		rt = config.RouterNetHTTP
	}
	if create, ok := supported[rt]; ok {
		return create(), nil
	}

	return nil, fmt.Errorf("router_type %q is not one of %s", routerType, strings.Join(SupportedTypes(), ", "))
}

// SupportedTypes returns the supported router types.
func SupportedTypes() []string {
	types := make([]string, 0, len(supported))
	for t := range supported {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
