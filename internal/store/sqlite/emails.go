package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
)

// UpsertEmails inserts or updates a batch of emails in a single
// transaction, keyed by message_id. On conflict the existing local id is
// kept and every mirrored field is replaced.
func (s *DB) UpsertEmails(ctx context.Context, emails []domain.Email) error {
	if len(emails) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emails (id, account_id, folder_mapping_id, message_id, thread_id, subject,
			from_addrs, to_addrs, cc_addrs, bcc_addrs, body_text, snippet, date,
			unread, starred, has_attachments, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			account_id        = excluded.account_id,
			folder_mapping_id = excluded.folder_mapping_id,
			thread_id         = excluded.thread_id,
			subject           = excluded.subject,
			from_addrs        = excluded.from_addrs,
			to_addrs          = excluded.to_addrs,
			cc_addrs          = excluded.cc_addrs,
			bcc_addrs         = excluded.bcc_addrs,
			body_text         = excluded.body_text,
			snippet           = excluded.snippet,
			date              = excluded.date,
			unread            = excluded.unread,
			starred           = excluded.starred,
			has_attachments   = excluded.has_attachments,
			attachments       = excluded.attachments`)
	if err != nil {
		return fmt.Errorf("failed to prepare email upsert: %w", err)
	}
	defer stmt.Close()

	for i := range emails {
		e := &emails[i]
		fromJSON, toJSON, ccJSON, bccJSON, attJSON, err := encodeEmailJSON(e)
		if err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			e.ID, e.AccountID, nullString(e.FolderMappingID), e.MessageID, e.ThreadID,
			e.Subject, fromJSON, toJSON, ccJSON, bccJSON, e.Body, e.Snippet,
			e.Date.UTC(), e.Unread, e.Starred, e.HasAttachments, attJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert email %s: %w", e.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit email upsert: %w", err)
	}
	return nil
}

// encodeEmailJSON marshals the participant and attachment lists. JSON only
// exists at this boundary; business logic sees the decoded slices.
func encodeEmailJSON(e *domain.Email) (from, to, cc, bcc, attachments string, err error) {
	marshal := func(v any, what string) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", what, err)
		}
		return string(data), nil
	}

	if from, err = marshal(e.From, "From addresses"); err != nil {
		return
	}
	if to, err = marshal(e.To, "To addresses"); err != nil {
		return
	}
	if cc, err = marshal(e.CC, "CC addresses"); err != nil {
		return
	}
	if bcc, err = marshal(e.BCC, "BCC addresses"); err != nil {
		return
	}
	attachments, err = marshal(e.Attachments, "attachments")
	return
}

const emailColumns = `id, account_id, folder_mapping_id, message_id, thread_id, subject,
	from_addrs, to_addrs, cc_addrs, bcc_addrs, body_text, snippet, date,
	unread, starred, has_attachments, attachments`

func scanEmail(row interface{ Scan(...any) error }) (*domain.Email, error) {
	var e domain.Email
	var folderID sql.NullString
	var fromJSON, toJSON, ccJSON, bccJSON, attJSON sql.NullString

	err := row.Scan(
		&e.ID, &e.AccountID, &folderID, &e.MessageID, &e.ThreadID, &e.Subject,
		&fromJSON, &toJSON, &ccJSON, &bccJSON, &e.Body, &e.Snippet, &e.Date,
		&e.Unread, &e.Starred, &e.HasAttachments, &attJSON,
	)
	if err != nil {
		return nil, err
	}
	e.FolderMappingID = folderID.String

	decode := func(src sql.NullString, dst any, what string) error {
		if !src.Valid || src.String == "" || src.String == "null" {
			return nil
		}
		if err := json.Unmarshal([]byte(src.String), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", what, err)
		}
		return nil
	}

	if err := decode(fromJSON, &e.From, "From addresses"); err != nil {
		return nil, err
	}
	if err := decode(toJSON, &e.To, "To addresses"); err != nil {
		return nil, err
	}
	if err := decode(ccJSON, &e.CC, "CC addresses"); err != nil {
		return nil, err
	}
	if err := decode(bccJSON, &e.BCC, "BCC addresses"); err != nil {
		return nil, err
	}
	if err := decode(attJSON, &e.Attachments, "attachments"); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *DB) GetEmail(ctx context.Context, id string) (*domain.Email, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email %s: %w", id, err)
	}
	return e, nil
}

// GetEmailByMessageID retrieves an email by its provider message id.
func (s *DB) GetEmailByMessageID(ctx context.Context, messageID string) (*domain.Email, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE message_id = ?`, messageID)
	e, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email by message id %s: %w", messageID, err)
	}
	return e, nil
}

// ListEmails returns emails matching the filters, newest first, with
// offset/limit pagination.
func (s *DB) ListEmails(ctx context.Context, opts store.ListEmailOptions) ([]domain.Email, error) {
	query := `SELECT ` + prefixColumns(emailColumns, "e.") + ` FROM emails e`
	var args []any

	where := " WHERE 1=1"
	if opts.UserID != "" {
		query += ` JOIN accounts a ON a.id = e.account_id`
		where += ` AND a.user_id = ?`
		args = append(args, opts.UserID)
	}
	if opts.AccountID != "" {
		where += ` AND e.account_id = ?`
		args = append(args, opts.AccountID)
	}
	if opts.FolderMappingID != "" {
		where += ` AND e.folder_mapping_id = ?`
		args = append(args, opts.FolderMappingID)
	}
	if opts.UnreadOnly {
		where += ` AND e.unread = TRUE`
	}
	if opts.StarredOnly {
		where += ` AND e.starred = TRUE`
	}

	query += where + ` ORDER BY e.date DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer rows.Close()

	var emails []domain.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email row: %w", err)
		}
		emails = append(emails, *e)
	}
	return emails, rows.Err()
}

// prefixColumns qualifies each column in a comma-separated list with the
// given table alias.
func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (s *DB) DeleteEmail(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete email %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetEmailFolder reassigns an email to a folder mapping.
func (s *DB) SetEmailFolder(ctx context.Context, emailID, folderMappingID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emails SET folder_mapping_id = ? WHERE id = ?`, folderMappingID, emailID)
	if err != nil {
		return fmt.Errorf("failed to move email %s: %w", emailID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetEmailStatus updates the unread and/or starred flags. Nil fields are
// left unchanged.
func (s *DB) SetEmailStatus(ctx context.Context, emailID string, unread, starred *bool) error {
	if unread == nil && starred == nil {
		return nil
	}

	query := `UPDATE emails SET`
	var args []any
	if unread != nil {
		query += ` unread = ?`
		args = append(args, *unread)
	}
	if starred != nil {
		if unread != nil {
			query += `,`
		}
		query += ` starred = ?`
		args = append(args, *starred)
	}
	query += ` WHERE id = ?`
	args = append(args, emailID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set email %s status: %w", emailID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
