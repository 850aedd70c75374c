// Package sqlite is the durable record store. Plain database/sql against a
// sqlite file; unique constraints enforce the object-key, token, proxy-name
// and sound-uuid invariants, and violations surface as storage.ErrDuplicate
// so races resolve in favor of the first writer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
)

// Store implements storage.ServerStore, storage.SoundStore and
// storage.UserStore on a sqlite database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a new sqlite-backed store
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const serverColumns = `id, object_key, object_name, type, shard_id, region_id, owner_id,
	COALESCE(user_id, 0), address, private_token, public_token,
	position_x, position_y, position_z, enabled, created_on, updated_on`

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed") {
		return storage.ErrDuplicate
	}
	return err
}

// GetOrCreateShard returns the shard with the given name, creating it on
// first sight.
func (s *Store) GetOrCreateShard(ctx context.Context, name string) (*models.Shard, bool, error) {
	shard := &models.Shard{Name: name}

	err := s.DB.QueryRowContext(ctx, `SELECT id FROM shards WHERE name = ?`, name).Scan(&shard.ID)
	if err == nil {
		return shard, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	res, err := s.DB.ExecContext(ctx, `INSERT INTO shards (name) VALUES (?)`, name)
	if err != nil {
		if errors.Is(mapErr(err), storage.ErrDuplicate) {
			// Lost a creation race; the row exists now.
			err = s.DB.QueryRowContext(ctx, `SELECT id FROM shards WHERE name = ?`, name).Scan(&shard.ID)
			return shard, false, err
		}
		return nil, false, err
	}
	shard.ID, err = res.LastInsertId()
	return shard, true, err
}

// GetOrCreateRegion returns the region with the given (shard, name) pair,
// creating it on first sight.
func (s *Store) GetOrCreateRegion(ctx context.Context, shardID int64, name string) (*models.Region, bool, error) {
	region := &models.Region{Name: name, ShardID: shardID}

	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM regions WHERE shard_id = ? AND name = ?`, shardID, name).Scan(&region.ID)
	if err == nil {
		return region, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO regions (name, shard_id) VALUES (?, ?)`, name, shardID)
	if err != nil {
		if errors.Is(mapErr(err), storage.ErrDuplicate) {
			err = s.DB.QueryRowContext(ctx,
				`SELECT id FROM regions WHERE shard_id = ? AND name = ?`, shardID, name).Scan(&region.ID)
			return region, false, err
		}
		return nil, false, err
	}
	region.ID, err = res.LastInsertId()
	return region, true, err
}

// GetOrCreateAgent returns the agent with the given (shard, uuid) pair,
// creating it on first sight. The stored name wins over the provided one
// for an existing agent.
func (s *Store) GetOrCreateAgent(ctx context.Context, shardID int64, agentUUID, name string) (*models.Agent, bool, error) {
	agent := &models.Agent{UUID: agentUUID, ShardID: shardID}

	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name FROM agents WHERE shard_id = ? AND uuid = ?`, shardID, agentUUID).
		Scan(&agent.ID, &agent.Name)
	if err == nil {
		return agent, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO agents (name, uuid, shard_id) VALUES (?, ?, ?)`, name, agentUUID, shardID)
	if err != nil {
		if errors.Is(mapErr(err), storage.ErrDuplicate) {
			err = s.DB.QueryRowContext(ctx,
				`SELECT id, name FROM agents WHERE shard_id = ? AND uuid = ?`, shardID, agentUUID).
				Scan(&agent.ID, &agent.Name)
			return agent, false, err
		}
		return nil, false, err
	}
	agent.Name = name
	agent.ID, err = res.LastInsertId()
	return agent, true, err
}

// CreateServer inserts a new server row.
func (s *Store) CreateServer(ctx context.Context, server *models.Server) error {
	now := time.Now()
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO servers (object_key, object_name, type, shard_id, region_id, owner_id,
			user_id, address, private_token, public_token,
			position_x, position_y, position_z, enabled, created_on, updated_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		server.ObjectKey, server.ObjectName, int(server.Type),
		server.ShardID, server.RegionID, server.OwnerID,
		nullableID(server.UserID), server.Address, server.PrivateToken, server.PublicToken,
		server.PositionX, server.PositionY, server.PositionZ,
		server.Enabled, now.Unix(), now.Unix(),
	)
	if err != nil {
		return mapErr(err)
	}
	server.ID, err = res.LastInsertId()
	server.CreatedOn = now
	server.UpdatedOn = now
	return err
}

// UpdateServer overwrites the stored row with the given server's fields.
func (s *Store) UpdateServer(ctx context.Context, server *models.Server) error {
	now := time.Now()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE servers
		 SET object_key=?, object_name=?, type=?, shard_id=?, region_id=?, owner_id=?,
		     user_id=?, address=?, private_token=?, public_token=?,
		     position_x=?, position_y=?, position_z=?, enabled=?, updated_on=?
		 WHERE id=?`,
		server.ObjectKey, server.ObjectName, int(server.Type),
		server.ShardID, server.RegionID, server.OwnerID,
		nullableID(server.UserID), server.Address, server.PrivateToken, server.PublicToken,
		server.PositionX, server.PositionY, server.PositionZ,
		server.Enabled, now.Unix(), server.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	server.UpdatedOn = now
	return nil
}

// GetServerByObjectKey retrieves a server by its object key.
func (s *Store) GetServerByObjectKey(ctx context.Context, objectKey string) (*models.Server, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE object_key = ?`, objectKey)
	return scanServer(row)
}

// GetServersByPrivateToken retrieves every server matching the private
// token so callers can detect a violated uniqueness invariant.
func (s *Store) GetServersByPrivateToken(ctx context.Context, token string) ([]*models.Server, error) {
	return s.queryServers(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE private_token = ?`, token)
}

// GetServersByPublicToken retrieves every server matching the public token.
func (s *Store) GetServersByPublicToken(ctx context.Context, token string) ([]*models.Server, error) {
	return s.queryServers(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE public_token = ?`, token)
}

// GetServerForUser retrieves a server by public token, scoped to its
// confirming user.
func (s *Store) GetServerForUser(ctx context.Context, userID int64, publicToken string) (*models.Server, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE user_id = ? AND public_token = ?`,
		userID, publicToken)
	return scanServer(row)
}

// GetServerByID retrieves a server by row ID.
func (s *Store) GetServerByID(ctx context.Context, id int64) (*models.Server, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	return scanServer(row)
}

// ListServers returns up to limit servers, newest first. A limit of zero or
// less means no limit.
func (s *Store) ListServers(ctx context.Context, limit int) ([]*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers ORDER BY created_on DESC`
	if limit > 0 {
		return s.queryServers(ctx, query+` LIMIT ?`, limit)
	}
	return s.queryServers(ctx, query)
}

// TokenInUse reports whether the token appears in either token column.
func (s *Store) TokenInUse(ctx context.Context, token string) (bool, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM servers WHERE private_token = ? OR public_token = ?`,
		token, token).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProxy inserts a new proxy alias.
func (s *Store) CreateProxy(ctx context.Context, proxy *models.ServerProxy) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO server_proxies (name, forced_path, allow_user_query, server_id)
		 VALUES (?, ?, ?, ?)`,
		proxy.Name, proxy.ForcedPath, proxy.AllowUserQuery, proxy.ServerID)
	if err != nil {
		return mapErr(err)
	}
	proxy.ID, err = res.LastInsertId()
	return err
}

// GetProxyByName retrieves a proxy alias by name.
func (s *Store) GetProxyByName(ctx context.Context, name string) (*models.ServerProxy, error) {
	var proxy models.ServerProxy
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, forced_path, allow_user_query, server_id
		 FROM server_proxies WHERE name = ?`, name).
		Scan(&proxy.ID, &proxy.Name, &proxy.ForcedPath, &proxy.AllowUserQuery, &proxy.ServerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &proxy, nil
}

// CreateSound inserts sound metadata.
func (s *Store) CreateSound(ctx context.Context, sound *models.Sound) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO sounds (uuid, duration, created_on) VALUES (?, ?, ?)`,
		sound.UUID, sound.Duration, sound.CreatedOn.Unix())
	if err != nil {
		return mapErr(err)
	}
	sound.ID, err = res.LastInsertId()
	return err
}

// ListSounds returns sounds whose duration falls inside the optional
// inclusive bounds.
func (s *Store) ListSounds(ctx context.Context, minDuration, maxDuration *float64) ([]*models.Sound, error) {
	query := `SELECT id, uuid, duration, created_on FROM sounds`
	var clauses []string
	var args []interface{}
	if minDuration != nil {
		clauses = append(clauses, `duration >= ?`)
		args = append(args, *minDuration)
	}
	if maxDuration != nil {
		clauses = append(clauses, `duration <= ?`)
		args = append(args, *maxDuration)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sounds []*models.Sound
	for rows.Next() {
		var sound models.Sound
		var createdOn int64
		if err := rows.Scan(&sound.ID, &sound.UUID, &sound.Duration, &createdOn); err != nil {
			return nil, err
		}
		sound.CreatedOn = time.Unix(createdOn, 0)
		sounds = append(sounds, &sound)
	}
	return sounds, rows.Err()
}

// CreateUser inserts a web-login account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (name, password_hash) VALUES (?, ?)`,
		user.Name, user.PasswordHash)
	if err != nil {
		return mapErr(err)
	}
	user.ID, err = res.LastInsertId()
	return err
}

// GetUserByName retrieves a web-login account by name.
func (s *Store) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, password_hash FROM users WHERE name = ?`, name).
		Scan(&user.ID, &user.Name, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) queryServers(ctx context.Context, query string, args ...interface{}) ([]*models.Server, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		server, err := scanServerRow(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanServerRow(row rowScanner) (*models.Server, error) {
	var server models.Server
	var serverType int
	var createdOn, updatedOn int64
	err := row.Scan(
		&server.ID, &server.ObjectKey, &server.ObjectName, &serverType,
		&server.ShardID, &server.RegionID, &server.OwnerID, &server.UserID,
		&server.Address, &server.PrivateToken, &server.PublicToken,
		&server.PositionX, &server.PositionY, &server.PositionZ,
		&server.Enabled, &createdOn, &updatedOn,
	)
	if err != nil {
		return nil, err
	}
	server.Type = models.RegistrationType(serverType)
	server.CreatedOn = time.Unix(createdOn, 0)
	server.UpdatedOn = time.Unix(updatedOn, 0)
	return &server, nil
}

func scanServer(row *sql.Row) (*models.Server, error) {
	server, err := scanServerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return server, nil
}

// nullableID maps the zero ID onto NULL so unconfirmed servers carry no
// user reference.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
