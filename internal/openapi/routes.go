package openapi

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
)

// Locations probed for the spec file, relative to the working directory.
// OPENAPI_SPEC_PATH overrides the search.
var defaultSpecPaths = []string{
	"assets/openapi/harmony.v1.yaml",
	"../assets/openapi/harmony.v1.yaml",
}

// RegisterRoutes wires OpenAPI routes to the router.
func RegisterRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/openapi", api.Handler(serveYAML))
	router.Method(http.MethodGet, "/v1/openapi.json", api.Handler(serveJSON))
}

func loadSpec() ([]byte, error) {
	path := os.Getenv("OPENAPI_SPEC_PATH")
	if path == "" {
		for _, candidate := range defaultSpecPaths {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				continue
			}
			if _, err := os.Stat(abs); err == nil {
				path = abs
				break
			}
		}
	}
	if path == "" {
		return nil, apperrors.NewInternalError("OpenAPI specification file not found")
	}

	spec, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to read OpenAPI specification")
	}
	return spec, nil
}

// serveYAML handles GET /v1/openapi
func serveYAML(w http.ResponseWriter, r *http.Request) error {
	spec, err := loadSpec()
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec)
	return nil
}

// serveJSON handles GET /v1/openapi.json
func serveJSON(w http.ResponseWriter, r *http.Request) error {
	spec, err := loadSpec()
	if err != nil {
		return err
	}

	var parsed any
	if err := yaml.Unmarshal(spec, &parsed); err != nil {
		return apperrors.NewInternalError("Failed to parse OpenAPI specification")
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	return api.WriteJSON(w, http.StatusOK, parsed)
}
