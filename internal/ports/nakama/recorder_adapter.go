package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/ports"
)

// NakamaRecordAdapter writes finished matches to Nakama storage, one copy per human
// participant so each player can list their own history.
type NakamaRecordAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaRecordAdapter(nk runtime.NakamaModule) *NakamaRecordAdapter {
	return &NakamaRecordAdapter{nk: nk}
}

// Record stores rec under its ID. A match without humans is stored as a system-owned object.
func (a *NakamaRecordAdapter) Record(ctx context.Context, rec ports.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal match record: %w", err)
	}

	var owners []string
	for _, p := range rec.Participants {
		if !p.Scripted && p.UserID != "" {
			owners = append(owners, p.UserID)
		}
	}
	if len(owners) == 0 {
		owners = []string{""}
	}

	storageWrites := make([]*runtime.StorageWrite, 0, len(owners))
	for _, userID := range owners {
		storageWrites = append(storageWrites, &runtime.StorageWrite{
			Collection:      MatchRecordCollection,
			Key:             rec.ID,
			UserID:          userID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		})
	}

	if _, err := a.nk.StorageWrite(ctx, storageWrites); err != nil {
		return fmt.Errorf("failed to write match record: %w", err)
	}
	return nil
}

var _ ports.MatchRecorder = (*NakamaRecordAdapter)(nil)
