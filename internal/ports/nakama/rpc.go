package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"
)

var errMissingMatchID = errors.New("match_id is required")

type matchStateRequest struct {
	MatchID string `json:"match_id"`
}

// rpcMatchState returns the current snapshot of a match, or its lobby view before the game starts.
//
// Payload: {"match_id": "..."}
// Returns: the snapshot JSON.
func rpcMatchState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req matchStateRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		logger.Warn("rpcMatchState [User:%s]: Bad payload: %v", userID, err)
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.MatchID == "" {
		return "", runtime.NewError(errMissingMatchID.Error(), 3)
	}

	state, err := nk.MatchSignal(ctx, req.MatchID, signalState)
	if err != nil {
		logger.Error("rpcMatchState [User:%s]: Failed to signal match %s: %v", userID, req.MatchID, err)
		return "", err
	}
	if state == "" {
		return "", runtime.NewError("match state unavailable", 5)
	}
	return state, nil
}
