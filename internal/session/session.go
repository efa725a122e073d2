// Package session stores login sessions: an opaque token bound to an
// organization, project and personal access token.
//
// The token is sealed with age before it is written; the database never holds
// it in the clear. A store without a persistent identity seals to a key that
// dies with the process, so its sessions do not survive a restart.
package session

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("session not found or expired")

// Session is an authenticated login.
type Session struct {
	Token        string
	Organization string
	Project      string
	PAT          string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store persists sessions in the devboard database.
type Store struct {
	db       *sql.DB
	ttl      time.Duration
	identity *age.X25519Identity
	now      func() time.Time
}

// NewStore creates a session store whose sessions live for ttl. PATs are sealed
// to identity; nil generates a key for this process only.
func NewStore(db *sql.DB, ttl time.Duration, identity *age.X25519Identity) (*Store, error) {
	if identity == nil {
		var err error
		if identity, err = age.GenerateX25519Identity(); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	return &Store{db: db, ttl: ttl, identity: identity, now: time.Now}, nil
}

// Create issues a new token for the credentials.
func (s *Store) Create(ctx context.Context, organization, project, pat string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		Token:        uuid.NewString(),
		Organization: organization,
		Project:      project,
		PAT:          pat,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	sealed, err := s.seal(pat)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO sessions(token, organization, project, pat_sealed, created_at, expires_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.Organization, sess.Project, sealed,
		sess.CreatedAt.Format(time.RFC3339), sess.ExpiresAt.Format(time.RFC3339)); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Lookup returns the live session for token. A session sealed under another
// key is gone for this store and is reported as ErrNotFound.
func (s *Store) Lookup(ctx context.Context, token string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT token, organization, project, pat_sealed, created_at, expires_at
		FROM sessions WHERE token=? AND expires_at > ?`, token, s.now().UTC().Format(time.RFC3339))
	var sess Session
	var sealed, created, expires string
	if err := row.Scan(&sess.Token, &sess.Organization, &sess.Project, &sealed, &created, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	pat, err := s.open(sealed)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	sess.PAT = pat
	if sess.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.ExpiresAt, err = time.Parse(time.RFC3339, expires); err != nil {
		return Session{}, fmt.Errorf("parse expires_at: %w", err)
	}
	return sess, nil
}

// Delete removes a session. Unknown tokens are not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired sessions and reports how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) seal(pat string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("seal pat: %w", err)
	}
	if _, err := io.WriteString(w, pat); err != nil {
		return "", fmt.Errorf("seal pat: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("seal pat: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Store) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed pat: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), s.identity)
	if err != nil {
		return "", fmt.Errorf("open sealed pat: %w", err)
	}
	pat, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("open sealed pat: %w", err)
	}
	return string(pat), nil
}
