package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/remote"
)

// errLocalLost means the remote row changed after the queued local edit.
var errLocalLost = errors.New("remote row is newer than local change")

// checkConflict applies last-write-wins on updated_at. It returns errLocalLost
// when the remote row is strictly newer than the payload. A missing remote
// row or an unstamped side is not a conflict; the update itself decides.
func (w *Worker) checkConflict(ctx context.Context, e *models.SyncQueueEntry) error {
	row, err := w.backend.Select(ctx, e.EntityType.Table(), e.EntityID)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		return err
	}

	remoteAt, ok := row.UpdatedAt()
	if !ok {
		return nil
	}
	localAt, err := payloadUpdatedAt(e.Payload)
	if err != nil {
		return nil
	}
	if remoteAt.After(localAt) {
		return fmt.Errorf("%w: remote %s, local %s", errLocalLost,
			remoteAt.Format(models.TimestampLayout), localAt.Format(models.TimestampLayout))
	}
	return nil
}

func payloadUpdatedAt(payload string) (t time.Time, err error) {
	var p struct {
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return t, err
	}
	return models.ParseTimestamp(p.UpdatedAt)
}
