// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements identity.SessionRepository on Redis.
//
// Layout under the configured prefix:
//
//	session:<id>        JSON session record
//	token:<token hash>  session id
//	user:<user id>      sorted set of session ids scored by creation time
//
// Save writes all three keys from one Lua script, so on Redis Cluster they
// must hash to the same slot; use a prefix with a hash tag such as "{passport}:".
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
)

// DefaultPrefix namespaces every key written by SessionStore.
const DefaultPrefix = "passport:"

// record is the stored form of a session. The token itself is never stored.
type record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore implements identity.SessionRepository using Redis.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewSessionStore creates a SessionStore. An empty prefix uses DefaultPrefix.
func NewSessionStore(client goredis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) sessionKey(id string) string { return s.prefix + "session:" + id }
func (s *SessionStore) tokenKey(hash string) string { return s.prefix + "token:" + hash }
func (s *SessionStore) userKey(userID string) string { return s.prefix + "user:" + userID }

// Find retrieves a session by its ID. The returned Token is empty.
func (s *SessionStore) Find(ctx context.Context, id ulid.ULID) (*identity.Session, error) {
	session, err := s.load(ctx, id.String())
	if err != nil {
		return nil, oops.With("id", id.String()).Wrap(err)
	}
	return session, nil
}

// FindByToken retrieves the session holding token.
func (s *SessionStore) FindByToken(ctx context.Context, token string) (*identity.Session, error) {
	id, err := s.client.Get(ctx, s.tokenKey(identity.HashToken(token))).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session id by token hash").
			Wrap(err)
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Token = token
	return session, nil
}

// FindByUser retrieves all sessions for a user, newest first. Tokens are empty.
func (s *SessionStore) FindByUser(ctx context.Context, userID ulid.ULID) ([]*identity.Session, error) {
	records, err := s.userRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]*identity.Session, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		session, err := records[i].session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// saveScript claims the session and token keys together and indexes the
// session under its user. It returns 1 when the session ID is taken, 2 when
// the token hash is taken and 0 once everything is written.
//
// KEYS: session, token, user. ARGV: record, session id, score.
var saveScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 1
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[2])
return 0
`)

// Save results reported by saveScript.
const (
	saveOK = iota
	saveDuplicateID
	saveDuplicateToken
)

// Save stores a new session. The session ID and token hash are claimed in a
// single script, so a duplicate of either leaves existing records untouched.
func (s *SessionStore) Save(ctx context.Context, session *identity.Session) error {
	rec := record{
		ID:        session.ID.String(),
		UserID:    session.UserID.String(),
		TokenHash: identity.HashToken(session.Token),
		CreatedAt: session.CreatedAt,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").With("id", rec.ID).Wrap(err)
	}

	keys := []string{s.sessionKey(rec.ID), s.tokenKey(rec.TokenHash), s.userKey(rec.UserID)}
	score := strconv.FormatInt(rec.CreatedAt.UnixNano(), 10)
	result, err := saveScript.Run(ctx, s.client, keys, data, rec.ID, score).Int()
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "write session").
			With("user_id", rec.UserID).
			Wrap(err)
	}

	switch result {
	case saveOK:
		return nil
	case saveDuplicateID:
		return oops.Code("SESSION_DUPLICATE").
			With("id", rec.ID).
			Wrap(identity.ErrConflict)
	case saveDuplicateToken:
		return oops.Code("SESSION_DUPLICATE_TOKEN").
			With("id", rec.ID).
			Wrap(identity.ErrConflict)
	default:
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "write session").
			With("result", result).
			Errorf("unexpected save script result")
	}
}

// DeleteByUser removes all sessions for a user along with their token index entries.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	records, err := s.userRecords(ctx, userID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, 2*len(records)+1)
	for _, rec := range records {
		keys = append(keys, s.sessionKey(rec.ID), s.tokenKey(rec.TokenHash))
	}
	keys = append(keys, s.userKey(userID.String()))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// load reads one session record by ID.
func (s *SessionStore) load(ctx context.Context, id string) (*identity.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("id", id).Wrap(err)
	}
	return rec.session()
}

// userRecords returns the user's session records oldest first. Index entries
// whose record has vanished are skipped.
func (s *SessionStore) userRecords(ctx context.Context, userID ulid.ULID) ([]record, error) {
	ids, err := s.client.ZRange(ctx, s.userKey(userID.String()), 0, -1).Result()
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_USER_FAILED").
			With("operation", "list session ids").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_USER_FAILED").
			With("operation", "load sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}

	records := make([]record, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, oops.Code("SESSION_DECODE_FAILED").With("id", ids[i]).Wrap(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r record) session() (*identity.Session, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", r.ID).Wrap(err)
	}
	userID, err := ulid.Parse(r.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", r.UserID).Wrap(err)
	}
	return &identity.Session{ID: id, UserID: userID, CreatedAt: r.CreatedAt}, nil
}

// Compile-time interface check.
var _ identity.SessionRepository = (*SessionStore)(nil)
