package nakama

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"tabletop/internal/domain"
)

// encodeLabel renders the match label queried by quick_match, e.g.
// {"open":true,"game":"chess","phase":"lobby"}.
func encodeLabel(label domain.LabelPayload) (string, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"open":  label.Open,
		"game":  label.Game,
		"phase": label.Phase,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build label: %w", err)
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal label: %w", err)
	}
	return string(b), nil
}

// lobbyQuery finds open lobbies of one game kind.
func lobbyQuery(kind domain.GameKind) string {
	return fmt.Sprintf("+label.open:T +label.game:%s +label.phase:%s", kind, domain.PhaseLobby)
}
