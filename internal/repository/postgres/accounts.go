package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTxStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
// Counter updates run as single UPDATE statements so concurrent login
// attempts never lose an increment.
type AccountRepository struct {
	exec    pgExecutor
	starter pgTxStarter
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor. Transactional operations additionally require the
// executor to start transactions, which both pgxpool and pgxmock support.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if starter, ok := exec.(pgTxStarter); ok {
		repo.starter = starter
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		starter: r.starter,
		builder: r.builder,
	}
}

var accountColumns = []string{
	"id",
	"username",
	"password_hash",
	"password_algo",
	"status",
	"failed_login_attempts",
	"password_expires_at",
	"last_login_at",
	"created_at",
	"last_password_change",
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account            domain.Account
		passwordExpiresAt  *time.Time
		lastLoginAt        *time.Time
		lastPasswordChange *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.PasswordAlgo,
		&account.Status,
		&account.FailedLoginAttempts,
		&passwordExpiresAt,
		&lastLoginAt,
		&account.CreatedAt,
		&lastPasswordChange,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.PasswordExpiresAt = passwordExpiresAt
	account.LastLoginAt = lastLoginAt
	// NULL means the provisioned password was never changed.
	if lastPasswordChange != nil {
		account.LastPasswordChange = *lastPasswordChange
	}

	return &account, nil
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// IncrementFailedAttempts atomically adds one to the failed-login counter and
// returns the post-increment value.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("failed_login_attempts", squirrel.Expr("failed_login_attempts + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING failed_login_attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment attempts sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}

	return attempts, nil
}

// ResetFailedAttempts zeroes the failed-login counter.
func (r *AccountRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("failed_login_attempts", 0).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset attempts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Lock transitions the account to the locked status.
func (r *AccountRepository) Lock(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("status", domain.AccountStatusLocked).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLogin stamps the last successful login time.
func (r *AccountRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("last_login_at", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword writes the new hash, appends it to the password history, and
// trims the history to historyLimit entries inside one transaction.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time, historyLimit int) error {
	if r.starter == nil {
		return fmt.Errorf("update password: executor does not support transactions")
	}

	tx, err := r.starter.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin password update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	updateStmt, updateArgs, err := r.builder.
		Update("auth.accounts").
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Set("last_password_change", changedAt.UTC()).
		Set("password_expires_at", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := tx.Exec(ctx, updateStmt, updateArgs...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	insertStmt, insertArgs, err := r.builder.
		Insert("auth.password_history").
		Columns("account_id", "password_hash", "set_at").
		Values(id, passwordHash, changedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history sql: %w", err)
	}

	if _, err := tx.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	trimSQL := `
		DELETE FROM auth.password_history
		WHERE account_id = $1
		  AND id NOT IN (
			SELECT id FROM auth.password_history
			WHERE account_id = $1
			ORDER BY set_at DESC
			LIMIT $2
		  )`

	if _, err := tx.Exec(ctx, trimSQL, id, historyLimit); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit password update tx: %w", err)
	}

	return nil
}

// ListPasswordHistory returns the retained password hashes, most recent first.
func (r *AccountRepository) ListPasswordHistory(ctx context.Context, id string, limit int) ([]domain.PasswordHistoryEntry, error) {
	query := r.builder.
		Select("id", "account_id", "password_hash", "set_at").
		From("auth.password_history").
		Where(squirrel.Eq{"account_id": id}).
		OrderBy("set_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.SetAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
