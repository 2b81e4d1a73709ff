package ops

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/photokeep/photokeep/internal/db"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newID returns a ULID. Monotonic entropy keeps ids sortable within a millisecond.
func newID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// beginIntent records that a dual-write for userID is about to start.
// Nothing durable has been touched if this fails.
func (e *Engine) beginIntent(ctx context.Context, userID, op, folder, photo string) (*db.Intent, error) {
	in := &db.Intent{
		ID:        newID(),
		UserID:    userID,
		Op:        op,
		Folder:    folder,
		Photo:     photo,
		CreatedAt: time.Now().Unix(),
	}
	if err := e.store.PutIntent(ctx, in); err != nil {
		e.logger.Error("intent write failed", "user", userID, "op", op, "error", err)
		return nil, err
	}
	return in, nil
}

// endIntent clears a journal entry once both documents are written. A
// failure here leaves a stale entry for Check to report; the operation itself
// already succeeded.
func (e *Engine) endIntent(ctx context.Context, in *db.Intent) {
	if err := e.store.DeleteIntent(ctx, in.ID); err != nil {
		e.logger.Warn("intent not cleared", "user", in.UserID, "op", in.Op, "intent", in.ID, "error", err)
	}
}

// writeFailed logs a durable write that failed after the intent was recorded.
// The cache keeps its optimistic state until Repair runs.
func (e *Engine) writeFailed(in *db.Intent, step string, err error) {
	e.logger.Error("dual-write interrupted",
		"user", in.UserID, "op", in.Op, "folder", in.Folder, "photo", in.Photo,
		"step", step, "intent", in.ID, "error", err)
}
