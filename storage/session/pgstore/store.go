package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

const (
	upsertQuery = `INSERT INTO sessions (id, token, profile, created_at, expires_at)
VALUES (:id, :token, :profile, :created_at, :expires_at)
ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, profile = EXCLUDED.profile, expires_at = EXCLUDED.expires_at`
	getQuery    = `SELECT id, token, profile, created_at, expires_at FROM sessions WHERE id = $1`
	deleteQuery = `DELETE FROM sessions WHERE id = $1`
	purgeQuery  = `DELETE FROM sessions WHERE expires_at <= $1`
)

type row struct {
	ID        string         `db:"id"`
	Token     string         `db:"token"`
	Profile   types.JSONText `db:"profile"`
	CreatedAt time.Time      `db:"created_at"`
	ExpiresAt time.Time      `db:"expires_at"`
}

type store struct {
	db *sqlx.DB
}

var _ session.Store = (*store)(nil) // interface compliance check

func NewStore(db *sqlx.DB) session.Store {
	return &store{db: db}
}

func (s *store) Save(ctx context.Context, sess session.Session) error {
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return errors.Wrap(err, "marshalling profile")
	}
	r := row{
		ID:        sess.ID,
		Token:     sess.AccessToken,
		Profile:   types.JSONText(profile),
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if _, err = s.db.NamedExecContext(ctx, upsertQuery, r); err != nil {
		return errors.Wrap(err, "upserting session")
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) (session.Session, error) {
	var r row
	if err := s.db.GetContext(ctx, &r, getQuery, id); err != nil {
		return session.Session{}, trapNoRowsErr(err, "selecting session")
	}

	var profile user.User
	if err := r.Profile.Unmarshal(&profile); err != nil {
		return session.Session{}, errors.Wrap(err, "unmarshalling profile")
	}
	return session.Session{
		ID:          r.ID,
		AccessToken: r.Token,
		Profile:     profile,
		CreatedAt:   r.CreatedAt.UTC(),
		ExpiresAt:   r.ExpiresAt.UTC(),
	}, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *store) Purge(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, purgeQuery, t.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging sessions")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "purging sessions")
}

// trapNoRowsErr maps "no rows" to session.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
