package storage

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"minichat/internal/storage/zapadapter"
)

var (
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotExist    = errors.New("user does not exist")
	ErrMessageNotExist = errors.New("message does not exist")
	ErrMessageNotOwned = errors.New("message belongs to another sender")
)

//go:embed schema.sql
var schema string

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// InitSchema creates missing tables and indexes
func (s *Store) InitSchema(ctx context.Context) error {
	s.logger.Info("Initializing database schema")
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Close closes all pooled connections
func (s *Store) Close() {
	s.db.Close()
}

// CreateUser inserts user with a fresh id and returns the stored record
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (User, error) {
	s.logger.Debugf("Creating user (%s)", email)

	u := User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	sql := "insert into users (id, email, name, password_hash, created_at) values ($1, $2, $3, $4, $5)"
	_, err := s.db.Exec(ctx, sql, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, err
	}

	s.logger.Debugf("Created user (%s) with id %s", email, u.ID)

	return u, nil
}

// UserByID returns ErrUserNotExist when id is unknown
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (User, error) {
	sql := "select id, email, name, password_hash, created_at from users where id = $1"
	return s.scanUser(s.db.QueryRow(ctx, sql, id))
}

// UserByEmail returns ErrUserNotExist when no user is registered with email
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	sql := "select id, email, name, password_hash, created_at from users where email = $1"
	return s.scanUser(s.db.QueryRow(ctx, sql, email))
}

func (s *Store) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}

// UsersExcept returns every user but the one with provided id, ordered by name
func (s *Store) UsersExcept(ctx context.Context, id uuid.UUID) ([]User, error) {
	sql := `select id, email, name, password_hash, created_at
			  from users
			 where id <> $1
			 order by name, email`

	rows, err := s.db.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// CreateMessage inserts m and returns it with the assigned id
func (s *Store) CreateMessage(ctx context.Context, m Message) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %s) to user (id: %s)", m.SenderID, m.ReceiverID)

	sql := "insert into messages (sender_id, receiver_id, content, sent_at) values ($1, $2, $3, $4) returning id"
	err := s.db.QueryRow(ctx, sql, m.SenderID, m.ReceiverID, m.Content, m.Timestamp).Scan(&m.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ForeignKeyViolation:
				if pgErr.ConstraintName == "messages_sender_id_fkey" {
					return Message{}, ErrUserNotExist
				}
				return Message{}, err
			}
		}
		return Message{}, err
	}

	return m, nil
}

// UpdateMessage replaces content and timestamp of message id only if it was sent by sender
func (s *Store) UpdateMessage(ctx context.Context, id int64, sender uuid.UUID, content string, at time.Time) (Message, error) {
	s.logger.Debugf("Updating message (id: %d) by user (id: %s)", id, sender)

	var m Message
	sql := `update messages
			   set content = $1, sent_at = $2
			 where id = $3 and sender_id = $4
		 returning id, sender_id, receiver_id, content, sent_at`
	err := s.db.QueryRow(ctx, sql, content, at, id, sender).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, s.classifyMiss(ctx, id)
		}
		return Message{}, err
	}

	return m, nil
}

// DeleteMessage removes message id only if it was sent by sender
func (s *Store) DeleteMessage(ctx context.Context, id int64, sender uuid.UUID) error {
	s.logger.Debugf("Deleting message (id: %d) by user (id: %s)", id, sender)

	tag, err := s.db.Exec(ctx, "delete from messages where id = $1 and sender_id = $2", id, sender)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, id)
	}
	return nil
}

// classifyMiss explains why a conditional statement on message id touched no rows
func (s *Store) classifyMiss(ctx context.Context, id int64) error {
	var i int8
	err := s.db.QueryRow(ctx, "select 1 from messages where id = $1", id).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotExist
		}
		return err
	}
	return ErrMessageNotOwned
}

// Conversation returns messages exchanged between q.UserA and q.UserB ordered by send time,
// id breaking ties, and capped at q.Limit
func (s *Store) Conversation(ctx context.Context, q ConversationQuery) ([]Message, error) {
	s.logger.Debugf("Retrieving conversation between users (%s, %s)", q.UserA, q.UserB)

	before := pgtype.Timestamptz{Status: pgtype.Null}
	if q.Before != nil {
		before = pgtype.Timestamptz{Time: *q.Before, Status: pgtype.Present}
	}

	order := "order by sent_at asc, id asc"
	if q.Descending {
		order = "order by sent_at desc, id desc"
	}

	sql := `select id, sender_id, receiver_id, content, sent_at
			  from messages
			 where ((sender_id = $1 and receiver_id = $2) or (sender_id = $2 and receiver_id = $1))
			   and ($3::timestamptz is null or sent_at < $3)
			 ` + order + `
			 limit $4`

	rows, err := s.db.Query(ctx, sql, q.UserA, q.UserB, before, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}

// CreateLogEntry stores e; an empty username is stored as null
func (s *Store) CreateLogEntry(ctx context.Context, e LogEntry) (LogEntry, error) {
	username := pgtype.Text{Status: pgtype.Null}
	if e.Username != "" {
		username = pgtype.Text{String: e.Username, Status: pgtype.Present}
	}

	sql := "insert into log_entries (ip, request_body, username, logged_at) values ($1, $2, $3, $4) returning id"
	if err := s.db.QueryRow(ctx, sql, e.IP, e.RequestBody, username, e.Timestamp).Scan(&e.ID); err != nil {
		return LogEntry{}, err
	}
	return e, nil
}

// LogEntriesBetween returns entries logged within [start, end] ordered by time
func (s *Store) LogEntriesBetween(ctx context.Context, start, end time.Time) ([]LogEntry, error) {
	sql := `select id, ip, request_body, username, logged_at
			  from log_entries
			 where logged_at >= $1 and logged_at <= $2
			 order by logged_at, id`

	rows, err := s.db.Query(ctx, sql, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LogEntry, 0)
	for rows.Next() {
		var (
			e        LogEntry
			username pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.IP, &e.RequestBody, &username, &e.Timestamp); err != nil {
			return nil, err
		}
		if username.Status == pgtype.Present {
			e.Username = username.String
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
