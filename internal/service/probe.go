package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/pkg/logger"
)

// Probe endpoints exposed by registered simulator servers.
const (
	// ConfirmProbePath is queried before a registration is confirmed.
	ConfirmProbePath = "/init_complete"
	// StatusProbePath is queried by status checks.
	StatusProbePath = "/status"

	// probeOKBody is the exact body a live server must answer with.
	probeOKBody = "OK."
)

// Prober performs synchronous liveness checks against a server's advertised
// address. Upstreams are peer-operated endpoints on private networks with
// self-signed certificates, so TLS verification follows configuration
// rather than being forced on.
type Prober struct {
	client *http.Client
	logger *logger.Logger
}

// NewProber creates a prober with the configured timeout and TLS policy.
func NewProber(cfg config.ProbeConfig, log *logger.Logger) *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
			},
		},
		logger: log,
	}
}

// Probe issues a single GET to baseAddress+pathSuffix. It succeeds only on
// HTTP 200 with a body exactly equal to "OK.". Every other outcome, wrong
// status, wrong body, network error or timeout, is reported as a single
// uniform failure; callers decide whether that means offline or
// unreachable.
func (p *Prober) Probe(ctx context.Context, baseAddress, pathSuffix string) error {
	target := strings.TrimRight(baseAddress, "/") + pathSuffix

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Probe failed", logger.F("target", target), logger.F("error", err.Error()))
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("Probe returned bad status", logger.F("target", target), logger.F("status", resp.Status))
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	// Read just past the expected body so a longer response is detected
	// without buffering an arbitrarily large one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(len(probeOKBody))+1))
	if err != nil {
		return fmt.Errorf("failed to read probe response: %w", err)
	}
	if string(body) != probeOKBody {
		p.logger.Debug("Probe returned bad body", logger.F("target", target))
		return fmt.Errorf("probe returned unexpected body")
	}

	return nil
}
