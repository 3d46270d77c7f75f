package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	goGate "github.com/MrEthical07/goGate"
	"github.com/jackc/pgx/v5"
)

// UserStore implements goGate.UserProvider.
type UserStore struct {
	db      DB
	builder squirrel.StatementBuilderType
}

var _ goGate.UserProvider = (*UserStore)(nil)

// NewUserStore wires a user store over db.
func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db, builder: statementBuilder()}
}

// WithTx returns a store that runs inside tx.
func (s *UserStore) WithTx(tx pgx.Tx) *UserStore {
	if tx == nil {
		return s
	}
	return &UserStore{db: tx, builder: s.builder}
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (goGate.UserRecord, error) {
	return s.getUser(ctx, squirrel.Eq{"username": username})
}

func (s *UserStore) GetUserByID(ctx context.Context, userID string) (goGate.UserRecord, error) {
	return s.getUser(ctx, squirrel.Eq{"id": userID})
}

func (s *UserStore) getUser(ctx context.Context, where squirrel.Eq) (goGate.UserRecord, error) {
	stmt, args, err := s.builder.
		Select("id", "username", "email", "password_hash").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return goGate.UserRecord{}, fmt.Errorf("build select user sql: %w", err)
	}

	var u goGate.UserRecord
	if err := s.db.QueryRow(ctx, stmt, args...).Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goGate.UserRecord{}, goGate.ErrProviderNotFound
		}
		return goGate.UserRecord{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	stmt, args, err := s.builder.
		Update("users").
		Set("password_hash", newHash).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := s.db.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goGate.ErrProviderNotFound
	}
	return nil
}

// GetSecurityQuestions returns the user's questions ordered by id.
func (s *UserStore) GetSecurityQuestions(ctx context.Context, userID string) ([]goGate.SecurityQuestion, error) {
	stmt, args, err := s.builder.
		Select("id", "question").
		From("security_questions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select questions sql: %w", err)
	}

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	defer rows.Close()

	var out []goGate.SecurityQuestion
	for rows.Next() {
		var q goGate.SecurityQuestion
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// GetAnswerHashes returns answer hashes keyed by question id. Ids that do not
// belong to the user are absent from the result.
func (s *UserStore) GetAnswerHashes(ctx context.Context, userID string, questionIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	stmt, args, err := s.builder.
		Select("id", "answer_hash").
		From("security_questions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"id": questionIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select answers sql: %w", err)
	}

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

// GetProfiles returns the user's profiles in name order.
func (s *UserStore) GetProfiles(ctx context.Context, userID string) ([]string, error) {
	stmt, args, err := s.builder.
		Select("profile").
		From("user_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("profile").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profiles sql: %w", err)
	}

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	profiles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect profiles: %w", err)
	}
	return profiles, nil
}

func (s *UserStore) UserHasProfile(ctx context.Context, userID, profile string) (bool, error) {
	stmt, args, err := s.builder.
		Select("1").
		From("user_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"profile": profile}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select profile sql: %w", err)
	}

	var one int
	if err := s.db.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select profile: %w", err)
	}
	return true, nil
}
