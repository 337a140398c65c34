package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linkmint/linkmint/internal/ratelimit"
)

// RegisterRoutes registers the short-link routes with per-endpoint rate
// limit configuration.
func RegisterRoutes(humaAPI huma.API, handler *Handler) {
	writeLimits := ratelimit.EndpointConfig{
		Limits: []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 60},
			{Window: time.Hour, Max: 1000},
		},
	}

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "create-short-link",
		Method:        http.MethodPost,
		Path:          "/v1/shortLinks",
		Summary:       "Create short link",
		Description:   "Shortens a URL for the tenant owning the API key.",
		Tags:          []string{"Short links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: writeLimits,
		},
	}, handler.CreateShortLink)

	huma.Register(humaAPI, huma.Operation{
		OperationID: "expand-short-link",
		Method:      http.MethodPost,
		Path:        "/v1/shortLinks/expand",
		Summary:     "Expand short link",
		Description: "Resolves a short link back to its original URL.",
		Tags:        []string{"Short links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: writeLimits,
		},
	}, handler.ExpandShortLink)

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "find-or-create-short-link",
		Method:        http.MethodPost,
		Path:          "/v1/shortLinks/findOrCreate",
		Summary:       "Find or create short link",
		Description:   "Returns the existing short link for a URL, creating one if needed.",
		Tags:          []string{"Short links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: writeLimits,
		},
	}, handler.FindOrCreateShortLink)

	// Redirects are the hot path; the limit only guards against abuse.
	huma.Register(humaAPI, huma.Operation{
		OperationID: "redirect-short-link",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the URL behind the short code, resolved under the request's host.",
		Tags:        []string{"Short links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 2000},
				},
			},
		},
	}, handler.RedirectShortLink)
}
