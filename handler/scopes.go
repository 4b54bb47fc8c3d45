package handler

import (
	"net/http"
	"sort"
)

// ScopeCatalog lists the scopes a server knows about.
type ScopeCatalog interface {
	KnownScopes() map[string]string
}

// ScopeInfo describes one known scope.
type ScopeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ScopesHandler serves the known scopes sorted by name.
func ScopesHandler(catalog ScopeCatalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		known := catalog.KnownScopes()
		out := make([]ScopeInfo, 0, len(known))
		for name, desc := range known {
			out = append(out, ScopeInfo{Name: name, Description: desc})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

		WriteJSON(w, http.StatusOK, out)
	})
}
