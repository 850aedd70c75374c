package models

import "time"

// RegistrationType tracks where a server is in its registration lifecycle.
type RegistrationType int

const (
	RegistrationUnregistered RegistrationType = 0
	RegistrationDefault      RegistrationType = 1
	RegistrationMap          RegistrationType = 2
)

func (t RegistrationType) String() string {
	switch t {
	case RegistrationUnregistered:
		return "unregistered"
	case RegistrationDefault:
		return "default"
	case RegistrationMap:
		return "map"
	default:
		return "unknown"
	}
}

// Shard is an isolated grid namespace servers and agents belong to.
// Created lazily the first time a registration references it.
type Shard struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Region is a named area within a shard. Unique per (name, shard).
type Region struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	ShardID int64  `json:"shard_id"`
}

// Agent is an owner identity scoped to a shard. Unique per (uuid, shard):
// the same avatar on two shards is two distinct agents.
type Agent struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	UUID    string `json:"uuid"`
	ShardID int64  `json:"shard_id"`
}

// User is a web-login account. Servers are bound to a user on confirmation.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Server is a registered simulator endpoint.
type Server struct {
	ID           int64            `json:"id"`
	ObjectKey    string           `json:"object_key"`
	ObjectName   string           `json:"object_name"`
	Type         RegistrationType `json:"type"`
	ShardID      int64            `json:"shard_id"`
	RegionID     int64            `json:"region_id"`
	OwnerID      int64            `json:"owner_id"`
	UserID       int64            `json:"user_id,omitempty"` // 0 until confirmed
	Address      string           `json:"address"`
	PrivateToken string           `json:"-"`
	PublicToken  string           `json:"-"`
	PositionX    float64          `json:"position_x"`
	PositionY    float64          `json:"position_y"`
	PositionZ    float64          `json:"position_z"`
	Enabled      bool             `json:"enabled"`
	CreatedOn    time.Time        `json:"created_on"`
	UpdatedOn    time.Time        `json:"updated_on"`
}

// ServerProxy maps a human-chosen alias to one server's address.
type ServerProxy struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ForcedPath     string `json:"forced_path,omitempty"`
	AllowUserQuery bool   `json:"allow_user_query"`
	ServerID       int64  `json:"server_id"`
}

// Sound is a short audio clip's metadata. UUIDs come from the grid asset
// system and lack variant information, so they are stored as opaque strings.
type Sound struct {
	ID        int64     `json:"-"`
	UUID      string    `json:"uuid"`
	Duration  float64   `json:"duration"`
	CreatedOn time.Time `json:"created_on"`
}

// RegisterRequest carries the parameters of a registration call, extracted
// from the form body or the X-SecondLife-* headers before reaching the core.
type RegisterRequest struct {
	ShardName  string
	RegionName string
	OwnerName  string
	OwnerKey   string
	ObjectKey  string
	ObjectName string
	Address    string
	PositionX  float64
	PositionY  float64
	PositionZ  float64
}

// UpdateRequest carries the parameters of an update call. Position is
// optional; HasPosition marks whether the caller supplied one.
type UpdateRequest struct {
	PrivateToken string
	ObjectKey    string
	ObjectName   string
	Address      string
	HasPosition  bool
	PositionX    float64
	PositionY    float64
	PositionZ    float64
}

// CreateProxyRequest carries the parameters of a proxy-creation call.
type CreateProxyRequest struct {
	PublicToken    string
	ProxyName      string
	ForcedPath     string
	AllowUserQuery bool
}

// Envelope is the uniform response shape every core operation yields.
type Envelope struct {
	Result  string      `json:"result"`
	Payload interface{} `json:"payload"`
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Success wraps a payload in a success envelope.
func Success(payload interface{}) Envelope {
	return Envelope{Result: ResultSuccess, Payload: payload}
}

// Error wraps a message in an error envelope.
func Error(payload interface{}) Envelope {
	return Envelope{Result: ResultError, Payload: payload}
}
