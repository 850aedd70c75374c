package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

// Grid asset and avatar keys are canonical lowercase UUIDs. Keys from the
// asset system may lack variant bits, so the check is a plain hex-group
// pattern rather than a strict RFC 4122 parse.
var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// Token types accepted by RegenerateTokens.
const (
	TokenTypePublic = "public"
	TokenTypeAuth   = "auth"
	TokenTypeBoth   = "both"
)

// RegistryService governs a server's registration lifecycle: initial
// registration, in-place updates, ownership confirmation, enable/disable
// and token regeneration. A server moves from unregistered to its default
// registered state only through Confirm by a logged-in user.
type RegistryService struct {
	store  storage.ServerStore
	tokens *TokenGenerator
	prober *Prober
	logger *logger.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(store storage.ServerStore, tokens *TokenGenerator, prober *Prober, log *logger.Logger) *RegistryService {
	return &RegistryService{
		store:  store,
		tokens: tokens,
		prober: prober,
		logger: log,
	}
}

// Register creates a server row for a never-seen object key, or refreshes
// the identity, address and tokens of an existing row that has not been
// confirmed yet. Registration of an already-confirmed server is rejected
// without mutation. On success the new private token is returned; the
// caller must retain it for later Update calls.
func (s *RegistryService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	if err := validateRegisterRequest(req); err != nil {
		return "", err
	}

	shard, region, owner, err := s.resolveIdentity(ctx, req.ShardName, req.RegionName, req.OwnerName, req.OwnerKey)
	if err != nil {
		return "", err
	}

	privateToken, err := s.tokens.Generate(ctx)
	if err != nil {
		return "", err
	}
	publicToken, err := s.tokens.Generate(ctx)
	if err != nil {
		return "", err
	}

	existing, err := s.store.GetServerByObjectKey(ctx, req.ObjectKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to look up server: %w", err)
	}

	if existing == nil {
		server := &models.Server{
			ObjectKey:    req.ObjectKey,
			ObjectName:   req.ObjectName,
			Type:         models.RegistrationUnregistered,
			ShardID:      shard.ID,
			RegionID:     region.ID,
			OwnerID:      owner.ID,
			Address:      req.Address,
			PrivateToken: privateToken,
			PublicToken:  publicToken,
			PositionX:    req.PositionX,
			PositionY:    req.PositionY,
			PositionZ:    req.PositionZ,
			Enabled:      false,
		}
		if err := s.store.CreateServer(ctx, server); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// Lost a race with a concurrent registration; the unique
				// constraint on object_key is the final arbiter.
				return "", ErrDuplicateKey
			}
			return "", fmt.Errorf("failed to create server: %w", err)
		}

		s.logger.Info("Server registered",
			logger.F("object_key", server.ObjectKey),
			logger.F("shard", req.ShardName),
			logger.F("region", req.RegionName))
		return privateToken, nil
	}

	if existing.Type != models.RegistrationUnregistered {
		return "", ErrAlreadyRegistered
	}

	// Re-registration of an unconfirmed server refreshes identity, address
	// and both tokens in place; the old private token stops working. Any
	// pending confirmation binding is cleared.
	existing.ObjectName = req.ObjectName
	existing.ShardID = shard.ID
	existing.RegionID = region.ID
	existing.OwnerID = owner.ID
	existing.UserID = 0
	existing.Address = req.Address
	existing.PrivateToken = privateToken
	existing.PublicToken = publicToken
	existing.PositionX = req.PositionX
	existing.PositionY = req.PositionY
	existing.PositionZ = req.PositionZ

	if err := s.store.UpdateServer(ctx, existing); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("failed to update server: %w", err)
	}

	s.logger.Info("Server re-registered", logger.F("object_key", existing.ObjectKey))
	return privateToken, nil
}

// Update refreshes the address, display name and position of a confirmed
// server. The private token and object key must both match the same row;
// tokens, ownership and registration state are untouched.
func (s *RegistryService) Update(ctx context.Context, req models.UpdateRequest) error {
	if req.PrivateToken == "" {
		return fmt.Errorf("%w: auth_token", ErrMissingArgument)
	}
	if req.Address == "" {
		return fmt.Errorf("%w: address", ErrMissingArgument)
	}

	server, err := s.getByPrivateToken(ctx, req.PrivateToken)
	if err != nil {
		return err
	}
	if server.ObjectKey != req.ObjectKey {
		return ErrNotFound
	}
	if server.Type == models.RegistrationUnregistered {
		return ErrNotRegistered
	}

	server.Address = req.Address
	if req.ObjectName != "" {
		server.ObjectName = req.ObjectName
	}
	if req.HasPosition {
		server.PositionX = req.PositionX
		server.PositionY = req.PositionY
		server.PositionZ = req.PositionZ
	}

	if err := s.store.UpdateServer(ctx, server); err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}
	return nil
}

// Confirm binds an unconfirmed server to the acting user and moves it to
// its default registered state. The server is probed first; confirmation
// makes no state change unless the server answers the liveness check.
func (s *RegistryService) Confirm(ctx context.Context, privateToken string, userID int64) error {
	server, err := s.getByPrivateToken(ctx, privateToken)
	if err != nil {
		return err
	}
	if server.Type != models.RegistrationUnregistered {
		return ErrAlreadyRegistered
	}
	if server.UserID != 0 {
		return ErrAlreadyRegistered
	}

	// Probe before touching the record so no transaction spans the
	// network round-trip.
	if err := s.prober.Probe(ctx, server.Address, ConfirmProbePath); err != nil {
		return ErrUnreachable
	}

	server.Type = models.RegistrationDefault
	server.UserID = userID

	if err := s.store.UpdateServer(ctx, server); err != nil {
		return fmt.Errorf("failed to confirm server: %w", err)
	}

	s.logger.Info("Server confirmed",
		logger.F("object_key", server.ObjectKey),
		logger.F("user_id", fmt.Sprintf("%d", userID)))
	return nil
}

// SetEnabled flips the owner-controlled availability flag. The lookup is
// scoped to the acting user, so a server owned by someone else is
// indistinguishable from one that does not exist.
func (s *RegistryService) SetEnabled(ctx context.Context, publicToken string, enabled bool, userID int64) error {
	server, err := s.getForUser(ctx, userID, publicToken)
	if err != nil {
		return err
	}
	if server.Type == models.RegistrationUnregistered {
		return ErrNotRegistered
	}

	server.Enabled = enabled
	if err := s.store.UpdateServer(ctx, server); err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}
	return nil
}

// RegenerateTokens replaces the requested token(s) of a server owned by the
// acting user. "auth" replaces the private token, "public" the public one,
// "both" replaces the two independently.
func (s *RegistryService) RegenerateTokens(ctx context.Context, publicToken, tokenType string, userID int64) error {
	server, err := s.getForUser(ctx, userID, publicToken)
	if err != nil {
		return err
	}
	if server.Type == models.RegistrationUnregistered {
		return ErrNotRegistered
	}

	switch tokenType {
	case TokenTypePublic, TokenTypeAuth, TokenTypeBoth:
	default:
		return ErrInvalidTokenType
	}

	if tokenType == TokenTypeAuth || tokenType == TokenTypeBoth {
		token, err := s.tokens.Generate(ctx)
		if err != nil {
			return err
		}
		server.PrivateToken = token
	}
	if tokenType == TokenTypePublic || tokenType == TokenTypeBoth {
		token, err := s.tokens.Generate(ctx)
		if err != nil {
			return err
		}
		server.PublicToken = token
	}

	if err := s.store.UpdateServer(ctx, server); err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}

	s.logger.Info("Tokens regenerated",
		logger.F("object_key", server.ObjectKey),
		logger.F("token_type", tokenType))
	return nil
}

// Status probes a confirmed server's liveness. The lookup is global: status
// is queryable by anyone holding the public token.
func (s *RegistryService) Status(ctx context.Context, publicToken string) error {
	servers, err := s.store.GetServersByPublicToken(ctx, publicToken)
	if err != nil {
		return fmt.Errorf("failed to look up server: %w", err)
	}
	server, err := s.single(servers, publicToken)
	if err != nil {
		return err
	}
	if server.Type == models.RegistrationUnregistered {
		return ErrNotRegistered
	}

	if err := s.prober.Probe(ctx, server.Address, StatusProbePath); err != nil {
		return ErrOffline
	}
	return nil
}

// ListServers returns up to limit servers for the public index view.
func (s *RegistryService) ListServers(ctx context.Context, limit int) ([]*models.Server, error) {
	servers, err := s.store.ListServers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// resolveIdentity maps the inbound shard/region/owner naming onto stable
// records, creating them on first sight. An existing agent keeps its stored
// name; identity is keyed by uuid and shard only.
func (s *RegistryService) resolveIdentity(ctx context.Context, shardName, regionName, ownerName, ownerKey string) (*models.Shard, *models.Region, *models.Agent, error) {
	shard, _, err := s.store.GetOrCreateShard(ctx, shardName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve shard: %w", err)
	}

	region, _, err := s.store.GetOrCreateRegion(ctx, shard.ID, regionName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve region: %w", err)
	}

	owner, _, err := s.store.GetOrCreateAgent(ctx, shard.ID, ownerKey, ownerName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve owner: %w", err)
	}

	return shard, region, owner, nil
}

func (s *RegistryService) getByPrivateToken(ctx context.Context, token string) (*models.Server, error) {
	servers, err := s.store.GetServersByPrivateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up server: %w", err)
	}
	return s.single(servers, token)
}

func (s *RegistryService) getForUser(ctx context.Context, userID int64, publicToken string) (*models.Server, error) {
	server, err := s.store.GetServerForUser(ctx, userID, publicToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up server: %w", err)
	}
	return server, nil
}

// single maps a token lookup's result set to one row. More than one match
// means the token-uniqueness invariant was violated upstream; that is an
// operational alarm, never an expected outcome.
func (s *RegistryService) single(servers []*models.Server, token string) (*models.Server, error) {
	switch len(servers) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return servers[0], nil
	default:
		s.logger.Error("Token matched multiple servers",
			logger.F("token", token),
			logger.F("matches", fmt.Sprintf("%d", len(servers))))
		return nil, ErrTokenCollision
	}
}

func validateRegisterRequest(req models.RegisterRequest) error {
	required := []struct {
		name  string
		value string
	}{
		{"shard", req.ShardName},
		{"region", req.RegionName},
		{"owner_name", req.OwnerName},
		{"owner_key", req.OwnerKey},
		{"object_key", req.ObjectKey},
		{"object_name", req.ObjectName},
		{"address", req.Address},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingArgument, field.name)
		}
	}

	if !uuidPattern.MatchString(req.OwnerKey) {
		return fmt.Errorf("%w: owner_key", ErrInvalidFormat)
	}
	if !uuidPattern.MatchString(req.ObjectKey) {
		return fmt.Errorf("%w: object_key", ErrInvalidFormat)
	}

	if len(req.ShardName) > 255 || len(req.RegionName) > 255 || len(req.ObjectName) > 255 {
		return fmt.Errorf("%w: name too long", ErrInvalidFormat)
	}
	if len(req.OwnerName) > 64 {
		return fmt.Errorf("%w: owner_name too long", ErrInvalidFormat)
	}

	return nil
}
