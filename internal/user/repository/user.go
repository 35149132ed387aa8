package repository

import (
	"context"
	"errors"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is a registered account.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Age          int
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines user persistence interfaces, including the
// solved-problem set maintained on first accepted submission.
type UserRepository interface {
	Create(ctx context.Context, tx db.Transaction, user *User) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*User, error)
	GetByEmail(ctx context.Context, tx db.Transaction, email string) (*User, error)
	ExistsByEmail(ctx context.Context, tx db.Transaction, email string) (bool, error)
	Delete(ctx context.Context, tx db.Transaction, id int64) error

	AddSolvedProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) error
	HasSolvedProblem(ctx context.Context, userID, problemID int64) (bool, error)
	ListSolvedProblems(ctx context.Context, tx db.Transaction, userID int64) ([]int64, error)
}

// MySQLUserRepository implements UserRepository with MySQL, mirroring
// each user's solved set into a Redis set for cheap membership checks.
type MySQLUserRepository struct {
	db    db.Database
	cache cache.Cache
}

// NewUserRepository creates a user repository.
func NewUserRepository(database db.Database, cacheClient cache.Cache) UserRepository {
	return &MySQLUserRepository{db: database, cache: cacheClient}
}

const userColumns = "id, first_name, last_name, email, password_hash, age, role, created_at, updated_at"

// Create inserts a user and returns the generated id.
func (r *MySQLUserRepository) Create(ctx context.Context, tx db.Transaction, user *User) (int64, error) {
	if user == nil {
		return 0, errors.New("user is nil")
	}
	if user.Email == "" {
		return 0, errors.New("email is required")
	}
	if user.PasswordHash == "" {
		return 0, errors.New("passwordHash is required")
	}
	if user.Role == "" {
		user.Role = UserRoleUser
	}

	query := `
		INSERT INTO users
		(first_name, last_name, email, password_hash, age, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Age,
		user.Role,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	user.ID = id
	return id, nil
}

// GetByID retrieves a user by id.
func (r *MySQLUserRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*User, error) {
	if id <= 0 {
		return nil, errors.New("id is required")
	}
	query := "SELECT " + userColumns + " FROM users WHERE id = ? LIMIT 1"
	return r.scanOne(db.GetQuerier(r.db, tx).QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, tx db.Transaction, email string) (*User, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}
	query := "SELECT " + userColumns + " FROM users WHERE email = ? LIMIT 1"
	return r.scanOne(db.GetQuerier(r.db, tx).QueryRow(ctx, query, email))
}

// ExistsByEmail reports whether an account with this email exists.
func (r *MySQLUserRepository) ExistsByEmail(ctx context.Context, tx db.Transaction, email string) (bool, error) {
	if email == "" {
		return false, errors.New("email is required")
	}
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT 1 FROM users WHERE email = ? LIMIT 1", email)
	var one int
	if err := row.Scan(&one); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes a user and their solved-set rows.
func (r *MySQLUserRepository) Delete(ctx context.Context, tx db.Transaction, id int64) error {
	if id <= 0 {
		return errors.New("id is required")
	}
	querier := db.GetQuerier(r.db, tx)
	if _, err := querier.Exec(ctx, "DELETE FROM user_solved_problems WHERE user_id = ?", id); err != nil {
		return err
	}
	result, err := querier.Exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	if r.cache != nil {
		_ = r.cache.Del(ctx, solvedSetKey(id))
	}
	return nil
}

// AddSolvedProblem records that the user solved the problem. Repeated
// adds for the same pair are no-ops at both the database and the
// Redis mirror.
func (r *MySQLUserRepository) AddSolvedProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) error {
	if userID <= 0 || problemID <= 0 {
		return errors.New("userID and problemID are required")
	}
	query := "INSERT IGNORE INTO user_solved_problems (user_id, problem_id) VALUES (?, ?)"
	if _, err := db.GetQuerier(r.db, tx).Exec(ctx, query, userID, problemID); err != nil {
		return err
	}
	if r.cache != nil && tx == nil {
		_ = r.cache.SAdd(ctx, solvedSetKey(userID), problemID)
	}
	return nil
}

// HasSolvedProblem checks the Redis mirror first and falls back to the
// database on a miss.
func (r *MySQLUserRepository) HasSolvedProblem(ctx context.Context, userID, problemID int64) (bool, error) {
	if userID <= 0 || problemID <= 0 {
		return false, errors.New("userID and problemID are required")
	}
	if r.cache != nil {
		solved, err := r.cache.SIsMember(ctx, solvedSetKey(userID), problemID)
		if err == nil && solved {
			return true, nil
		}
	}
	row := db.GetQuerier(r.db, nil).QueryRow(
		ctx,
		"SELECT 1 FROM user_solved_problems WHERE user_id = ? AND problem_id = ? LIMIT 1",
		userID,
		problemID,
	)
	var one int
	if err := row.Scan(&one); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListSolvedProblems returns the problem ids the user has solved.
func (r *MySQLUserRepository) ListSolvedProblems(ctx context.Context, tx db.Transaction, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, errors.New("userID is required")
	}
	query := "SELECT problem_id FROM user_solved_problems WHERE user_id = ? ORDER BY problem_id"
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var problemIDs []int64
	for rows.Next() {
		var problemID int64
		if err := rows.Scan(&problemID); err != nil {
			return nil, err
		}
		problemIDs = append(problemIDs, problemID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return problemIDs, nil
}

func (r *MySQLUserRepository) scanOne(row db.Row) (*User, error) {
	user := &User{}
	var role string
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Age,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.Role = UserRole(role)
	return user, nil
}
