package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// storeErr maps a driver failure onto the error vocabulary. A cancelled
// context wins over whatever the driver reported.
func storeErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCancelled(op)
	}
	return errors.NewStoreUnavailable(err)
}

// GetUser retrieves a user record by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*library.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, secret_id, display_name, photo_count, folder_count,
			folders_json, sizes_json, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordNotFound("user:" + id)
	}
	if err != nil {
		return nil, storeErr(ctx, "get user", err)
	}
	return u, nil
}

// PutUser inserts or replaces a user record.
func (s *SQLiteStore) PutUser(ctx context.Context, u *library.User) error {
	foldersJSON, err := json.Marshal(nonNilFolders(u.Folders))
	if err != nil {
		return errors.NewInternal(err)
	}
	sizesJSON, err := json.Marshal(nonNilSizes(u.FolderSizes))
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, secret_id, display_name, photo_count, folder_count,
			folders_json, sizes_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			secret_id = excluded.secret_id,
			display_name = excluded.display_name,
			photo_count = excluded.photo_count,
			folder_count = excluded.folder_count,
			folders_json = excluded.folders_json,
			sizes_json = excluded.sizes_json,
			updated_at = excluded.updated_at
	`,
		u.ID, u.SecretID, u.DisplayName, u.PhotoCount, u.FolderCount,
		string(foldersJSON), string(sizesJSON), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return storeErr(ctx, "put user", err)
	}
	return nil
}

// ListAllUsers returns every stored user record ordered by id.
func (s *SQLiteStore) ListAllUsers(ctx context.Context) ([]*library.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, secret_id, display_name, photo_count, folder_count,
			folders_json, sizes_json, created_at, updated_at
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, storeErr(ctx, "list users", err)
	}
	defer rows.Close()

	var users []*library.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr(ctx, "list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list users", err)
	}
	return users, nil
}

// GetFolder retrieves the folder document for (userID, name).
func (s *SQLiteStore) GetFolder(ctx context.Context, userID, name string) (*library.Folder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, photo_count, photos_json, created_at, updated_at
		FROM folders
		WHERE id = ?
	`, library.FolderID(userID, name))

	f, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordNotFound("folder:" + library.FolderID(userID, name))
	}
	if err != nil {
		return nil, storeErr(ctx, "get folder", err)
	}
	return f, nil
}

// PutFolder inserts or replaces a folder document.
func (s *SQLiteStore) PutFolder(ctx context.Context, f *library.Folder) error {
	photos := f.Photos
	if photos == nil {
		photos = map[string]string{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO folders (
			id, user_id, name, photo_count, photos_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			photo_count = excluded.photo_count,
			photos_json = excluded.photos_json,
			updated_at = excluded.updated_at
	`,
		library.FolderID(f.UserID, f.Name), f.UserID, f.Name, f.PhotoCount,
		string(photosJSON), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return storeErr(ctx, "put folder", err)
	}
	return nil
}

// DeleteFolder removes the folder document for (userID, name).
// Returns RECORD_NOT_FOUND if no document existed.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, userID, name string) error {
	id := library.FolderID(userID, name)
	result, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return storeErr(ctx, "delete folder", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeErr(ctx, "delete folder", err)
	}
	if rowsAffected == 0 {
		return errors.NewRecordNotFound("folder:" + id)
	}
	return nil
}

// ListFolders returns every folder document owned by userID ordered by name.
func (s *SQLiteStore) ListFolders(ctx context.Context, userID string) ([]*library.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, photo_count, photos_json, created_at, updated_at
		FROM folders
		WHERE user_id = ?
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, storeErr(ctx, "list folders", err)
	}
	defer rows.Close()

	var folders []*library.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, storeErr(ctx, "list folders", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list folders", err)
	}
	return folders, nil
}

// PutIntent records a journal entry.
func (s *SQLiteStore) PutIntent(ctx context.Context, in *Intent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intents (id, user_id, op, folder, photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.ID, in.UserID, in.Op, toNullString(in.Folder), toNullString(in.Photo), in.CreatedAt)
	if err != nil {
		return storeErr(ctx, "put intent", err)
	}
	return nil
}

// DeleteIntent removes a journal entry. Deleting a missing entry is not an error.
func (s *SQLiteStore) DeleteIntent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM intents WHERE id = ?`, id); err != nil {
		return storeErr(ctx, "delete intent", err)
	}
	return nil
}

// ListIntents returns pending journal entries, oldest first.
// An empty userID lists entries for every user.
func (s *SQLiteStore) ListIntents(ctx context.Context, userID string) ([]*Intent, error) {
	query := `SELECT id, user_id, op, folder, photo, created_at FROM intents`
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(ctx, "list intents", err)
	}
	defer rows.Close()

	var intents []*Intent
	for rows.Next() {
		var in Intent
		var folder, photo sql.NullString
		if err := rows.Scan(&in.ID, &in.UserID, &in.Op, &folder, &photo, &in.CreatedAt); err != nil {
			return nil, storeErr(ctx, "list intents", err)
		}
		in.Folder = fromNullString(folder)
		in.Photo = fromNullString(photo)
		intents = append(intents, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list intents", err)
	}
	return intents, nil
}

// scanner abstracts sql.Row and sql.Rows for scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*library.User, error) {
	var u library.User
	var foldersJSON, sizesJSON string

	err := s.Scan(
		&u.ID, &u.SecretID, &u.DisplayName, &u.PhotoCount, &u.FolderCount,
		&foldersJSON, &sizesJSON, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(foldersJSON), &u.Folders); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sizesJSON), &u.FolderSizes); err != nil {
		return nil, err
	}
	u.Folders = nonNilFolders(u.Folders)
	u.FolderSizes = nonNilSizes(u.FolderSizes)
	return &u, nil
}

func scanFolder(s scanner) (*library.Folder, error) {
	var f library.Folder
	var photosJSON string

	err := s.Scan(&f.ID, &f.UserID, &f.Name, &f.PhotoCount, &photosJSON, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(photosJSON), &f.Photos); err != nil {
		return nil, err
	}
	if f.Photos == nil {
		f.Photos = map[string]string{}
	}
	return &f, nil
}

func nonNilFolders(folders []string) []string {
	if folders == nil {
		return []string{}
	}
	return folders
}

func nonNilSizes(sizes map[string]int) map[string]int {
	if sizes == nil {
		return map[string]int{}
	}
	return sizes
}

// toNullString converts an empty string to sql.NullString{Valid: false}.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// fromNullString converts sql.NullString to string (empty if NULL).
func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
