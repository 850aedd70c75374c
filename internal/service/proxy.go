package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

// maxProxyBody caps how much of an upstream response is relayed.
const maxProxyBody = 4 << 20

// ProxyService resolves named proxy aliases to server addresses and relays
// requests to them. It shares the prober's trust model: upstreams sit on
// private networks, so TLS verification follows configuration.
type ProxyService struct {
	store  storage.ServerStore
	client *http.Client
	logger *logger.Logger
}

// NewProxyService creates a new proxy service
func NewProxyService(store storage.ServerStore, cfg config.ProbeConfig, log *logger.Logger) *ProxyService {
	return &ProxyService{
		store: store,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
			},
		},
		logger: log,
	}
}

// ProxyResponse is an upstream response relayed verbatim to the caller.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// CreateProxy registers a named alias for a server owned by the acting
// user. Alias names are unique across all proxies.
func (s *ProxyService) CreateProxy(ctx context.Context, userID int64, req models.CreateProxyRequest) (*models.ServerProxy, error) {
	if req.PublicToken == "" {
		return nil, fmt.Errorf("%w: public_token", ErrMissingArgument)
	}
	if req.ProxyName == "" {
		return nil, fmt.Errorf("%w: proxy_name", ErrMissingArgument)
	}

	server, err := s.store.GetServerForUser(ctx, userID, req.PublicToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up server: %w", err)
	}
	if server.Type == models.RegistrationUnregistered {
		return nil, ErrNotRegistered
	}

	proxy := &models.ServerProxy{
		Name:           req.ProxyName,
		ForcedPath:     req.ForcedPath,
		AllowUserQuery: req.AllowUserQuery,
		ServerID:       server.ID,
	}
	if err := s.store.CreateProxy(ctx, proxy); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateProxyName
		}
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	s.logger.Info("Proxy created",
		logger.F("proxy_name", proxy.Name),
		logger.F("object_key", server.ObjectKey))
	return proxy, nil
}

// Forward resolves the alias, builds the target URL from the server's
// address, the alias's forced path and, when permitted, the caller's query,
// then relays the upstream status, body and content type. The body is
// relayed up to maxProxyBody bytes; anything past the cap is dropped.
func (s *ProxyService) Forward(ctx context.Context, proxyName, userQuery string) (*ProxyResponse, error) {
	proxy, err := s.store.GetProxyByName(ctx, proxyName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up proxy: %w", err)
	}

	server, err := s.store.GetServerByID(ctx, proxy.ServerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up proxied server: %w", err)
	}

	target := server.Address + proxy.ForcedPath
	if proxy.AllowUserQuery {
		target += userQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrUnreachable
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Proxy upstream failed",
			logger.F("proxy_name", proxyName),
			logger.F("error", err.Error()))
		return nil, ErrUnreachable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return nil, ErrUnreachable
	}

	return &ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
