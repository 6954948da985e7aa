/*
Package store defines the persistence collaborator consumed by the chat core.

This file implements Store on top of a pgx connection pool. Passwords are
hashed with bcrypt; uniqueness collisions surface as ErrDuplicate.
*/
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/netly/netlychat/internal/app/db"
	"github.com/netly/netlychat/internal/app/user"
	"github.com/netly/netlychat/internal/pkg/randx"
)

// userColumns is the column list shared by every user-returning query.
const userColumns = `id, user_id, friend_code, username, email, display_name, bio, status, avatar_color, profile_picture, is_online, last_seen, joined_at`

// idRetryAttempts bounds regeneration of the random public id / friend code
// when registration happens to collide on one of them.
const idRetryAttempts = 3

// Postgres implements Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps the given pool in a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// scanUser scans one row produced with userColumns into a User.
func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var displayName, bio *string

	err := row.Scan(
		&u.ID, &u.UserID, &u.FriendCode, &u.Username, &u.Email,
		&displayName, &bio, &u.Status, &u.AvatarColor, &u.ProfilePicture,
		&u.IsOnline, &u.LastSeen, &u.JoinedAt,
	)
	if err != nil {
		return nil, err
	}

	if displayName != nil {
		u.DisplayName = *displayName
	}
	if bio != nil {
		u.Bio = *bio
	}

	return &u, nil
}

// AuthenticateUser matches identifier against email or username and verifies
// the bcrypt hash. Both an unknown identifier and a wrong password return
// (nil, nil) so callers cannot distinguish the two.
func (p *Postgres) AuthenticateUser(ctx context.Context, identifier, password string) (*user.User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1 OR username = $1`,
		identifier,
	)

	var u user.User
	var displayName, bio *string
	var passwordHash string

	err := row.Scan(
		&u.ID, &u.UserID, &u.FriendCode, &u.Username, &u.Email,
		&displayName, &bio, &u.Status, &u.AvatarColor, &u.ProfilePicture,
		&u.IsOnline, &u.LastSeen, &u.JoinedAt,
		&passwordHash,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, nil
	}

	if displayName != nil {
		u.DisplayName = *displayName
	}
	if bio != nil {
		u.Bio = *bio
	}

	return &u, nil
}

// CreateUser registers a new account with a generated public id and friend
// code. Collisions on the generated identifiers are retried a few times;
// collisions on username or email come back as ErrDuplicate.
func (p *Postgres) CreateUser(ctx context.Context, params CreateUserParams) (*user.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; ; attempt++ {
		publicID, err := randx.PublicUserID()
		if err != nil {
			return nil, fmt.Errorf("generate public user id: %w", err)
		}

		friendCode, err := randx.FriendCode()
		if err != nil {
			return nil, fmt.Errorf("generate friend code: %w", err)
		}

		row := p.pool.QueryRow(ctx,
			`INSERT INTO users (user_id, friend_code, username, email, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			publicID, friendCode, params.Username, params.Email, string(hashed),
		)

		u, err := scanUser(row)
		if err == nil {
			return u, nil
		}

		if db.IsUniqueViolation(err) {
			// A clash on the random identifiers is bad luck, not a caller error.
			if attempt < idRetryAttempts && db.ViolatedConstraintIn(err, "users_user_id_key", "users_friend_code_key") {
				continue
			}
			return nil, fmt.Errorf("create user: %w", ErrDuplicate)
		}

		return nil, fmt.Errorf("create user: %w", err)
	}
}

// UpdateUserOnlineStatus flips the persisted online flag and refreshes last_seen.
func (p *Postgres) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE users SET is_online = $2, last_seen = now() WHERE user_id = $1`,
		userID, online,
	)
	if err != nil {
		return fmt.Errorf("update online status: %w", err)
	}
	return nil
}

// UpdateUserProfile applies the non-nil fields of the update and returns the
// resulting user. Nil pointers map to SQL NULL and leave the column as-is.
func (p *Postgres) UpdateUserProfile(ctx context.Context, userID string, fields ProfileUpdate) (*user.User, error) {
	var status *string
	if fields.Status != nil {
		s := string(*fields.Status)
		status = &s
	}

	row := p.pool.QueryRow(ctx,
		`UPDATE users SET
			display_name    = COALESCE($2, display_name),
			bio             = COALESCE($3, bio),
			status          = COALESCE($4, status),
			avatar_color    = COALESCE($5, avatar_color),
			profile_picture = COALESCE($6, profile_picture)
		 WHERE user_id = $1
		 RETURNING `+userColumns,
		userID, fields.DisplayName, fields.Bio, status, fields.AvatarColor, fields.ProfilePicture,
	)

	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// RecentMessages returns up to limit messages joined with their author,
// newest first. Callers reverse for oldest-first history playback.
func (p *Postgres) RecentMessages(ctx context.Context, limit int32) ([]Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT m.id, u.user_id, u.username, u.display_name, m.body, m.created_at
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 ORDER BY m.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var displayName *string

		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &displayName, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if displayName != nil {
			m.DisplayName = *displayName
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent messages rows: %w", err)
	}

	return messages, nil
}

// CreateMessage persists a message for the given author and returns it with
// the server-assigned id and timestamp.
func (p *Postgres) CreateMessage(ctx context.Context, userID string, body string) (*Message, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO messages (id, user_id, body)
		 SELECT $1, u.id, $3 FROM users u WHERE u.user_id = $2
		 RETURNING id, created_at`,
		randx.MessageID(), userID, body,
	)

	var m Message
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("create message: author %s not found", userID)
		}
		return nil, fmt.Errorf("create message: %w", err)
	}

	m.UserID = userID
	m.Body = body
	return &m, nil
}

// RecentlyActiveUsers returns users whose last_seen falls within the window,
// most recent first. The online-flag filter matters: flipping a user offline
// also touches last_seen, so without it a user would linger in presence for
// a full window after their departure was already announced.
func (p *Postgres) RecentlyActiveUsers(ctx context.Context, window time.Duration) ([]user.User, error) {
	cutoff := time.Now().Add(-window)

	rows, err := p.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_online = TRUE AND last_seen >= $1 ORDER BY last_seen DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("recently active users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recently active rows: %w", err)
	}

	return users, nil
}

// FindUserByUserID looks a user up by public id. Returns (nil, nil) on a miss.
func (p *Postgres) FindUserByUserID(ctx context.Context, userID string) (*user.User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`,
		userID,
	)

	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by user id: %w", err)
	}
	return u, nil
}
