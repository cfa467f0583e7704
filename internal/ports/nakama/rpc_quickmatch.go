package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/domain"
)

// QuickMatchRequest selects the game and lobby parameters. Every field is optional.
type QuickMatchRequest struct {
	Game        string `json:"game"`
	TimeControl *int   `json:"time_control"` // seconds per seat, 0 for untimed
	Seats       int    `json:"seats"`
}

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcMatchState, rpcMatchState)
}

// parseQuickMatch decodes the request and resolves the game kind. An empty payload asks for chess.
func parseQuickMatch(payload string) (QuickMatchRequest, domain.GameKind, error) {
	var req QuickMatchRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return req, "", runtime.NewError("invalid payload", 3)
		}
	}
	if req.Game == "" {
		return req, domain.KindChess, nil
	}
	kind, ok := domain.ParseGameKind(req.Game)
	if !ok {
		return req, "", runtime.NewError("unknown game", 3)
	}
	return req, kind, nil
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req, kind, err := parseQuickMatch(payload)
	if err != nil {
		logger.Warn("quick_match: %v", err)
		return "", err
	}

	// Find any open lobby of the requested game.
	query := lobbyQuery(kind)

	limit := 10
	authoritative := true

	_, seats := kind.SeatRange()
	minSize := 1
	maxSize := seats - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	params := map[string]interface{}{"game": string(kind)}
	if req.TimeControl != nil {
		params["time_control"] = *req.TimeControl
	}
	if req.Seats > 0 {
		params["seats"] = req.Seats
	}

	// Seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameTabletop, params)
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
