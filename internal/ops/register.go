package ops

import (
	"context"
)

// RegisterInput contains parameters for the Register operation.
type RegisterInput struct {
	UserID      string
	DisplayName string
}

// RegisterOutput contains the result of the Register operation.
type RegisterOutput struct {
	UserID      string `json:"user_id"`
	SecretID    string `json:"secret_id"`
	Created     bool   `json:"created"`
	FolderCount int    `json:"folder_count"`
	PhotoCount  int    `json:"photo_count"`
}

// Register returns the user's record, creating it on first sight.
// Front ends call it before every other per-user operation.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	u, created, err := e.dir.GetOrCreate(ctx, input.UserID, input.DisplayName)
	if err != nil {
		return nil, err
	}

	u, unlock, err := e.lockUser(u.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return &RegisterOutput{
		UserID:      u.ID,
		SecretID:    u.SecretID,
		Created:     created,
		FolderCount: u.FolderCount,
		PhotoCount:  u.PhotoCount,
	}, nil
}
