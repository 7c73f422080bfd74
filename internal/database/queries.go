package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipgenie/internal/domain"
)

var (
	ErrClipNotFound = errors.New("clip not found")
	ErrEmptyClip    = errors.New("clip text is empty")
)

func (d *Database) SetAPIKey(ctx context.Context, userID int64, apiKey string) error {
	query := `insert into user_settings (user_id, api_key)
	values (?, ?)
	on conflict (user_id) do update
	set api_key = excluded.api_key`

	_, err := d.db.ExecContext(ctx, query, userID, strings.TrimSpace(apiKey))

	return err
}

func (d *Database) SetFormat(ctx context.Context, userID int64, format domain.Format) error {
	if !format.Valid() {
		return fmt.Errorf("unknown format: %q", format)
	}

	query := `insert into user_settings (user_id, format)
	values (?, ?)
	on conflict (user_id) do update
	set format = excluded.format`

	_, err := d.db.ExecContext(ctx, query, userID, string(format))

	return err
}

// GetUserSettings returns the stored settings, or the defaults when the user
// has none yet.
func (d *Database) GetUserSettings(ctx context.Context, userID int64) (domain.UserSettings, error) {
	query := `select user_id, api_key, format
	from user_settings
	where user_id = ?`

	var (
		us     domain.UserSettings
		format string
	)

	err := d.db.QueryRowContext(ctx, query, userID).Scan(&us.UserID, &us.APIKey, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserSettings{
			UserID: userID,
			Format: domain.DefaultFormat,
		}, nil
	}
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("scan row: %w", err)
	}

	us.Format = domain.ParseFormat(format)

	return us, nil
}

func (d *Database) AddClip(ctx context.Context, userID int64, text string) (domain.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Clip{}, ErrEmptyClip
	}

	createdAt := time.Now().UTC().Truncate(time.Second)

	query := "insert into clips (user_id, text, created_at) values (?, ?, ?)"

	res, err := d.db.ExecContext(ctx, query, userID, text, createdAt.Unix())
	if err != nil {
		return domain.Clip{}, fmt.Errorf("insert clip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Clip{}, fmt.Errorf("get clip id: %w", err)
	}

	return domain.Clip{
		ID:        id,
		UserID:    userID,
		Text:      text,
		CreatedAt: createdAt,
	}, nil
}

// GetClips returns the clips of a user in the order they were saved.
func (d *Database) GetClips(ctx context.Context, userID int64) ([]domain.Clip, error) {
	query := `select id, text, created_at
	from clips
	where user_id = ?
	order by id`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "GetClips")
		}
	}()

	var clips []domain.Clip
	for rows.Next() {
		var (
			c         domain.Clip
			createdAt int64
		)
		if err = rows.Scan(&c.ID, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		c.UserID = userID
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		clips = append(clips, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return clips, nil
}

// RemoveClip deletes a clip owned by userID.
func (d *Database) RemoveClip(ctx context.Context, userID int64, clipID int64) error {
	query := "delete from clips where id = ? and user_id = ?"

	res, err := d.db.ExecContext(ctx, query, clipID, userID)
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		return ErrClipNotFound
	}

	return nil
}

// PruneClips deletes clips saved before olderThan and reports how many went.
func (d *Database) PruneClips(ctx context.Context, olderThan time.Time) (int64, error) {
	query := "delete from clips where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete clips: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get affected rows: %w", err)
	}

	return affected, nil
}
