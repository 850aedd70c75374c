package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/nooperation/slutils/internal/auth"
	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/service"
	"github.com/nooperation/slutils/pkg/logger"
)

// Handler holds all HTTP handlers
type Handler struct {
	registry  *service.RegistryService
	proxies   *service.ProxyService
	sounds    *service.SoundService
	auth      *auth.Service
	listLimit int
	logger    *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(
	registry *service.RegistryService,
	proxies *service.ProxyService,
	sounds *service.SoundService,
	authService *auth.Service,
	listLimit int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		registry:  registry,
		proxies:   proxies,
		sounds:    sounds,
		auth:      authService,
		listLimit: listLimit,
		logger:    log,
	}
}

const tokenPattern = "[a-f0-9]{32}"

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/", h.Index)

	r.Post("/register/", h.Register)
	r.Post("/update/", h.Update)
	r.Get("/{public_token:"+tokenPattern+"}/status/", h.Status)
	r.Get("/proxy/{proxy_name}", h.Proxy)
	r.Get("/proxy/{proxy_name}/*", h.Proxy)

	r.Post("/login/", h.Login)
	r.Post("/logout/", h.Logout)

	// Ownership-gated operations require a login session.
	r.Group(func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/{private_token:"+tokenPattern+"}/confirm/", h.Confirm)
		r.Get("/{public_token:"+tokenPattern+"}/set_enabled/{enabled}/", h.SetEnabled)
		r.Get("/{public_token:"+tokenPattern+"}/regenerate_tokens/{token_type}/", h.RegenerateTokens)
		r.Post("/create_proxy/", h.CreateProxy)
	})

	r.Route("/sounds", func(r chi.Router) {
		r.Get("/", h.AllSounds)
		r.Get("/json/random/", h.RandomSound)
		r.Get("/json/all/", h.AllSounds)
		r.Post("/json/import/", h.ImportSounds)
	})

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serverSummary is the index projection of a server. Tokens are bearer
// credentials and never appear in list output.
type serverSummary struct {
	ID         int64     `json:"id"`
	ObjectName string    `json:"object_name"`
	Type       string    `json:"type"`
	ShardID    int64     `json:"shard_id"`
	RegionID   int64     `json:"region_id"`
	PositionX  float64   `json:"position_x"`
	PositionY  float64   `json:"position_y"`
	PositionZ  float64   `json:"position_z"`
	Enabled    bool      `json:"enabled"`
	CreatedOn  time.Time `json:"created_on"`
}

// Index lists registered servers (public fields only).
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	servers, err := h.registry.ListServers(r.Context(), h.listLimit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	summaries := make([]serverSummary, 0, len(servers))
	for _, server := range servers {
		summaries = append(summaries, serverSummary{
			ID:         server.ID,
			ObjectName: server.ObjectName,
			Type:       server.Type.String(),
			ShardID:    server.ShardID,
			RegionID:   server.RegionID,
			PositionX:  server.PositionX,
			PositionY:  server.PositionY,
			PositionZ:  server.PositionZ,
			Enabled:    server.Enabled,
			CreatedOn:  server.CreatedOn,
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"servers": summaries})
}

// Register handles server registration requests from scripted objects. On
// success the payload is the private token the object must retain for
// updates.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := registerRequest(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	privateToken, err := h.registry.Register(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success(privateToken))
}

// Update handles address/name/position refreshes from registered objects.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := updateRequest(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if err := h.registry.Update(r.Context(), req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success("OK"))
}

// Confirm binds a pending registration to the logged-in user.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	privateToken := chi.URLParam(r, "private_token")

	if err := h.registry.Confirm(r.Context(), privateToken, session.UserID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success("Server confirmed"))
}

// SetEnabled flips a server's availability flag.
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	publicToken := chi.URLParam(r, "public_token")

	enabled, err := strconv.ParseBool(chi.URLParam(r, "enabled"))
	if err != nil {
		h.respondServiceError(w, r, service.ErrInvalidFormat)
		return
	}

	if err := h.registry.SetEnabled(r.Context(), publicToken, enabled, session.UserID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	message := "Server disabled"
	if enabled {
		message = "Server enabled"
	}
	h.respondEnvelope(w, models.Success(message))
}

// RegenerateTokens replaces a server's token(s).
func (h *Handler) RegenerateTokens(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	publicToken := chi.URLParam(r, "public_token")
	tokenType := chi.URLParam(r, "token_type")

	if err := h.registry.RegenerateTokens(r.Context(), publicToken, tokenType, session.UserID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success("Tokens regenerated"))
}

// Status reports whether a registered server answers its liveness probe.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	publicToken := chi.URLParam(r, "public_token")

	if err := h.registry.Status(r.Context(), publicToken); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success("Server online"))
}

// CreateProxy registers a named alias for one of the user's servers.
func (h *Handler) CreateProxy(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	allowUserQuery := false
	if value := r.FormValue("allow_user_query"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			h.respondServiceError(w, r, service.ErrInvalidFormat)
			return
		}
		allowUserQuery = parsed
	}

	req := models.CreateProxyRequest{
		PublicToken:    r.FormValue("public_token"),
		ProxyName:      r.FormValue("proxy_name"),
		ForcedPath:     r.FormValue("forced_path"),
		AllowUserQuery: allowUserQuery,
	}

	proxy, err := h.proxies.CreateProxy(r.Context(), session.UserID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondEnvelope(w, models.Success(map[string]string{
		"proxy_name":  proxy.Name,
		"forced_path": proxy.ForcedPath,
	}))
}

// Proxy relays a request through a named alias to the backing server,
// passing the upstream status, body and content type through verbatim.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	proxyName := chi.URLParam(r, "proxy_name")

	userQuery := ""
	if rest := chi.URLParam(r, "*"); rest != "" {
		userQuery = "/" + rest
	}
	if r.URL.RawQuery != "" {
		userQuery += "?" + r.URL.RawQuery
	}

	resp, err := h.proxies.Forward(r.Context(), proxyName, userQuery)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// Login checks credentials and issues a session token (cookie + payload).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
	})
	h.respondEnvelope(w, models.Success(session.Token))
}

// Logout revokes the current session token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	h.respondEnvelope(w, models.Success("OK"))
}

// RandomSound returns a random sound, optionally bounded by integer
// min_duration/max_duration query parameters. Unparseable bounds are
// ignored.
func (h *Handler) RandomSound(w http.ResponseWriter, r *http.Request) {
	var minDuration, maxDuration *float64
	if value, err := strconv.Atoi(r.URL.Query().Get("min_duration")); err == nil {
		f := float64(value)
		minDuration = &f
	}
	if value, err := strconv.Atoi(r.URL.Query().Get("max_duration")); err == nil {
		f := float64(value)
		maxDuration = &f
	}

	sound, err := h.sounds.Random(r.Context(), minDuration, maxDuration)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.respondJSON(w, http.StatusNotFound, map[string]string{"error": "No sounds available"})
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"uuid":     sound.UUID,
		"duration": sound.Duration,
	})
}

// AllSounds lists every known sound.
func (h *Handler) AllSounds(w http.ResponseWriter, r *http.Request) {
	sounds, err := h.sounds.All(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	soundsJSON := make([]map[string]interface{}, 0, len(sounds))
	for _, sound := range sounds {
		soundsJSON = append(soundsJSON, map[string]interface{}{
			"uuid":     sound.UUID,
			"duration": sound.Duration,
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"sounds": soundsJSON})
}

type importSoundsRequest struct {
	Sounds []importSound `json:"sounds"`
}

type importSound struct {
	UUID      string  `json:"uuid"`
	Duration  float64 `json:"duration"`
	CreatedOn string  `json:"created_on"`
}

// ImportSounds bulk-imports sound metadata. Scanner exports can be large,
// so a gzip-compressed body is accepted via Content-Encoding.
func (h *Handler) ImportSounds(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid gzip body"})
			return
		}
		defer gz.Close()
		body = gz
	}

	var req importSoundsRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sounds := make([]models.Sound, 0, len(req.Sounds))
	for _, entry := range req.Sounds {
		sounds = append(sounds, models.Sound{
			UUID:      entry.UUID,
			Duration:  entry.Duration,
			CreatedOn: parseCreatedOn(entry.CreatedOn),
		})
	}

	imported, err := h.sounds.Import(r.Context(), sounds)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFormat) {
			h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to import sounds"})
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"num_imported": imported})
}

func parseCreatedOn(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Now()
}

// operationErrors are the failure classes recovered locally into an error
// envelope. Anything else is an infrastructure fault.
var operationErrors = []error{
	service.ErrMissingArgument,
	service.ErrInvalidFormat,
	service.ErrAlreadyRegistered,
	service.ErrNotRegistered,
	service.ErrNotFound,
	service.ErrTokenCollision,
	service.ErrTokenExhausted,
	service.ErrDuplicateKey,
	service.ErrInvalidTokenType,
	service.ErrDuplicateProxyName,
	service.ErrUnreachable,
	service.ErrOffline,
}

// respondServiceError maps a core error onto the envelope contract.
// Recognized operation failures keep HTTP 200 with an error envelope, which
// is the shape in-world scripts parse; unexpected failures become a generic
// 500 and are logged with context for the operator.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, opErr := range operationErrors {
		if errors.Is(err, opErr) {
			h.respondEnvelope(w, models.Error(err.Error()))
			return
		}
	}

	h.logger.Error("Request failed",
		logger.F("path", r.URL.Path),
		logger.F("request_id", GetRequestID(r.Context())),
		logger.F("error", err.Error()))
	h.respondError(w, http.StatusInternalServerError, "internal error")
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondEnvelope sends a result envelope with HTTP 200
func (h *Handler) respondEnvelope(w http.ResponseWriter, envelope models.Envelope) {
	h.respondJSON(w, http.StatusOK, envelope)
}

// respondError sends an error envelope with the given HTTP status
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.Error(message))
}
