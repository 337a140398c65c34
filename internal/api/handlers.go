package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/linkmint/linkmint/internal/config"
	"github.com/linkmint/linkmint/internal/events"
	"github.com/linkmint/linkmint/internal/messaging"
	"github.com/linkmint/linkmint/internal/shortener"
	"github.com/linkmint/linkmint/internal/tenant"
	"github.com/linkmint/linkmint/internal/validator"
)

// Client-facing error strings. Deliberately generic: they never distinguish
// a malformed key from an unknown one, or reveal why a URL was rejected.
const (
	msgInvalidURL        = "Invalid URL"
	msgInvalidAPIKey     = "Invalid API key"
	msgShortLinkNotFound = "Short link not found"
	msgURLNotFound       = "URL not found"
	msgInternal          = "An error occurred while processing your request"
	msgRESTDisabled      = "REST API is disabled"
)

// pendingWarning is returned on async creations, where the link is not yet
// durable when the response is written.
const pendingWarning = "short link creation is in progress"

var apiKeyShape = regexp.MustCompile(`^[A-Za-z0-9]{16,64}$`)

// Handler exposes the shortening engine over HTTP.
type Handler struct {
	shortener    *shortener.Shortener
	tenants      tenant.Directory
	validator    *validator.Validator
	publishClick messaging.Publish[events.LinkClickedEvent]
	engine       config.EngineConfig
	logger       *zap.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(
	s *shortener.Shortener,
	tenants tenant.Directory,
	v *validator.Validator,
	publishClick messaging.Publish[events.LinkClickedEvent],
	engine config.EngineConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		shortener:    s,
		tenants:      tenants,
		validator:    v,
		publishClick: publishClick,
		engine:       engine,
		logger:       logger,
	}
}

// authenticate resolves an API key to its tenant. Malformed keys are
// rejected without a directory round trip, with the same message as a miss.
func (h *Handler) authenticate(ctx context.Context, apiKey string) (*tenant.Tenant, error) {
	if !apiKeyShape.MatchString(apiKey) {
		return nil, huma.Error403Forbidden(msgInvalidAPIKey)
	}

	t, err := h.tenants.ByAPIKey(ctx, apiKey)
	if errors.Is(err, tenant.ErrNotFound) {
		return nil, huma.Error403Forbidden(msgInvalidAPIKey)
	}

	if err != nil {
		h.logger.Error("tenant lookup failed", zap.Error(err))

		return nil, huma.Error500InternalServerError(msgInternal)
	}

	return t, nil
}

// CreateShortLink shortens a URL for the authenticated tenant.
func (h *Handler) CreateShortLink(ctx context.Context, req *CreateShortLinkRequest) (*CreateShortLinkResponse, error) {
	if !h.engine.EnableRESTAPI {
		return nil, huma.Error403Forbidden(msgRESTDisabled)
	}

	t, err := h.authenticate(ctx, req.Body.APIKey)
	if err != nil {
		return nil, err
	}

	if err := h.validator.CheckDestination(req.Body.URL); err != nil {
		h.logger.Debug("rejected destination", zap.Int64("tenant_id", t.ID), zap.Error(err))

		return nil, huma.Error400BadRequest(msgInvalidURL)
	}

	if h.engine.AsyncProcessing {
		return h.createAsync(ctx, t, req.Body.URL)
	}

	link, err := h.shortener.Shorten(ctx, t, req.Body.URL)
	if err != nil {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	return shortLinkResponse(http.StatusCreated, link, nil), nil
}

// createAsync schedules the creation and answers before the mapping is
// durable. A request already in flight for the same pair gets the same
// answer, never a second job.
func (h *Handler) createAsync(ctx context.Context, t *tenant.Tenant, rawURL string) (*CreateShortLinkResponse, error) {
	err := h.shortener.ShortenAsync(ctx, t, rawURL)
	if err != nil && !errors.Is(err, shortener.ErrLockHeld) {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	return shortLinkResponse(http.StatusAccepted, "", []string{pendingWarning}), nil
}

// ExpandShortLink resolves a short link back to its destination.
func (h *Handler) ExpandShortLink(ctx context.Context, req *ExpandRequest) (*ExpandResponse, error) {
	if !h.engine.EnableRESTAPI {
		return nil, huma.Error403Forbidden(msgRESTDisabled)
	}

	t, err := h.authenticate(ctx, req.Body.APIKey)
	if err != nil {
		return nil, err
	}

	code := extractCode(req.Body.ShortURL)
	if code == "" {
		return nil, huma.Error404NotFound(msgShortLinkNotFound)
	}

	fullURL, err := h.shortener.Resolve(ctx, t, code)
	if errors.Is(err, shortener.ErrNotFound) {
		return nil, huma.Error404NotFound(msgShortLinkNotFound)
	}

	if err != nil {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	resp := &ExpandResponse{}
	resp.Body.FullURL = fullURL

	return resp, nil
}

// FindOrCreateShortLink returns the link already issued for a URL, creating
// it when the URL has never been shortened. Always synchronous.
func (h *Handler) FindOrCreateShortLink(ctx context.Context, req *CreateShortLinkRequest) (*CreateShortLinkResponse, error) {
	if !h.engine.EnableRESTAPI {
		return nil, huma.Error403Forbidden(msgRESTDisabled)
	}

	t, err := h.authenticate(ctx, req.Body.APIKey)
	if err != nil {
		return nil, err
	}

	if err := h.validator.CheckDestination(req.Body.URL); err != nil {
		h.logger.Debug("rejected destination", zap.Int64("tenant_id", t.ID), zap.Error(err))

		return nil, huma.Error400BadRequest(msgInvalidURL)
	}

	link, err := h.shortener.FindExisting(ctx, t, req.Body.URL)
	if err == nil {
		return shortLinkResponse(http.StatusOK, link, nil), nil
	}

	if !errors.Is(err, shortener.ErrNotFound) {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	link, err = h.shortener.Shorten(ctx, t, req.Body.URL)
	if err != nil {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	return shortLinkResponse(http.StatusCreated, link, nil), nil
}

// RedirectShortLink follows a short code under the tenant owning the
// request's Host header.
func (h *Handler) RedirectShortLink(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	t, err := h.tenants.ByHostname(ctx, stripPort(meta.Host))
	if errors.Is(err, tenant.ErrNotFound) {
		return h.missResponse(req.Code)
	}

	if err != nil {
		h.logger.Error("tenant lookup failed", zap.String("host", meta.Host), zap.Error(err))

		return nil, huma.Error500InternalServerError(msgInternal)
	}

	destination, err := h.shortener.Resolve(ctx, t, req.Code)
	if errors.Is(err, shortener.ErrNotFound) {
		return h.missResponse(req.Code)
	}

	if err != nil {
		return nil, huma.Error500InternalServerError(msgInternal)
	}

	h.recordClick(t, req.Code, destination, meta)

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = destination

	return resp, nil
}

// missResponse answers an unresolvable code: a redirect to the configured
// fallback host when one is set, 404 otherwise.
func (h *Handler) missResponse(code string) (*RedirectResponse, error) {
	if h.engine.FallbackMode != config.FallbackRedirect {
		return nil, huma.Error404NotFound(msgURLNotFound)
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = fallbackLocation(h.engine.FallbackHost, code)

	return resp, nil
}

// recordClick publishes the click fact. Best effort: a bus failure is logged
// and the redirect proceeds.
func (h *Handler) recordClick(t *tenant.Tenant, code, destination string, meta RequestMeta) {
	event := &events.LinkClickedEvent{
		Code:        code,
		OriginalURL: destination,
		TenantID:    t.ID,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		Referrer:    meta.Referrer,
		ClickedAt:   time.Now().UTC(),
	}

	if err := h.publishClick(event); err != nil {
		h.logger.Error("failed to publish click event",
			zap.String("code", code),
			zap.Int64("tenant_id", t.ID),
			zap.Error(err),
		)
	}
}

func shortLinkResponse(status int, link string, warnings []string) *CreateShortLinkResponse {
	if warnings == nil {
		warnings = []string{}
	}

	resp := &CreateShortLinkResponse{Status: status}
	resp.Body.ShortLink = link
	resp.Body.Warning = warnings

	if link != "" {
		resp.Body.PreviewLink = link + "?preview=true"
	}

	return resp
}

// extractCode accepts a full short link or a bare code and returns the code.
func extractCode(shortURL string) string {
	if !strings.Contains(shortURL, "/") {
		return shortURL
	}

	u, err := url.Parse(shortURL)
	if err != nil {
		return ""
	}

	return strings.Trim(u.Path, "/")
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}

func fallbackLocation(host, code string) string {
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/") + "/" + code
	}

	u := url.URL{Scheme: tenant.SchemeHTTPS, Host: host, Path: "/" + code}

	return u.String()
}
