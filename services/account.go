package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/atelierhq/atelier/db"
	"github.com/atelierhq/atelier/guard"
)

// Common errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// AccountService handles account records, collaborator links, threads and
// messages. Guarded nested mutations (thread membership links) run through
// the guard pipeline first.
type AccountService struct {
	PG       *sql.DB
	Auth     *AuthService
	Pipeline *guard.Pipeline
}

// NewAccountService creates a new AccountService
func NewAccountService(pg *sql.DB, auth *AuthService, pipeline *guard.Pipeline) *AccountService {
	return &AccountService{PG: pg, Auth: auth, Pipeline: pipeline}
}

// CreateAccountInput represents input for registering an account
type CreateAccountInput struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// CreateAccount registers a new account with a hashed password.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*guard.Account, error) {
	hash, err := s.Auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &guard.Account{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Username:  input.Username,
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		CreatedAt: time.Now(),
	}

	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, firstname, lastname, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, account.ID, account.Email, account.Username, hash, account.Firstname, account.Lastname, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email or username already taken", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id string) (*guard.Account, error) {
	var a guard.Account
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, email, username, COALESCE(firstname, ''), COALESCE(lastname, ''), created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Username, &a.Firstname, &a.Lastname, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// AddCollaborator links another account into this account's collaborator set.
func (s *AccountService) AddCollaborator(ctx context.Context, accountID, collaboratorID string) error {
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO collaborators (account_id, collaborator_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, collaborator_id) DO NOTHING
	`, accountID, collaboratorID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	return nil
}

// ListCollaborators returns the accounts linked as collaborators.
func (s *AccountService) ListCollaborators(ctx context.Context, accountID string) ([]guard.Account, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT a.id, a.email, a.username, COALESCE(a.firstname, ''), COALESCE(a.lastname, ''), a.created_at
		FROM accounts a
		JOIN collaborators c ON c.collaborator_id = a.id
		WHERE c.account_id = $1
		ORDER BY a.username
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer rows.Close()

	accounts := make([]guard.Account, 0)
	for rows.Next() {
		var a guard.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Username, &a.Firstname, &a.Lastname, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreateThread starts a new thread owned by the account.
func (s *AccountService) CreateThread(ctx context.Context, accountID, name string) (*db.Thread, error) {
	thread := &db.Thread{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO threads (id, account_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, thread.ID, thread.AccountID, thread.Name, thread.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread, nil
}

// GetThread retrieves a thread by ID
func (s *AccountService) GetThread(ctx context.Context, id string) (*db.Thread, error) {
	var t db.Thread
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, account_id, name, created_at FROM threads WHERE id = $1
	`, id).Scan(&t.ID, &t.AccountID, &t.Name, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return &t, nil
}

// LinkThreadAccount adds an account to a thread's member set. The target may
// be a primary key or an email address; the guard pipeline resolves it.
func (s *AccountService) LinkThreadAccount(ctx context.Context, actorID, threadID, target string) error {
	rc := &guard.RequestContext{
		ActorID:    actorID,
		Mutation:   guard.MutationLinkThreadAccount,
		InstanceID: threadID,
		TargetID:   target,
	}
	if err := s.Pipeline.RunBefore(ctx, rc); err != nil {
		return err
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO thread_accounts (thread_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id, account_id) DO NOTHING
	`, rc.InstanceID, rc.TargetID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link account to thread: %w", err)
	}
	return nil
}

// CreateMessage posts a message by the account into a thread.
func (s *AccountService) CreateMessage(ctx context.Context, accountID, threadID, content string) (*db.Message, error) {
	message := &db.Message{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ThreadID:  threadID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO messages (id, account_id, thread_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, message.ID, message.AccountID, message.ThreadID, message.Content, message.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return message, nil
}

// GetMessage retrieves a message by ID
func (s *AccountService) GetMessage(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, account_id, thread_id, content, created_at FROM messages WHERE id = $1
	`, id).Scan(&m.ID, &m.AccountID, &m.ThreadID, &m.Content, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
