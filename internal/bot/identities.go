package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/domain"
)

// Identity is a scripted opponent profile loaded from data/bot_identities.json.
type Identity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "medium", "hard"
	Level       int    `json:"level"`      // overrides Difficulty when set
	AvatarIndex int    `json:"avatar_index"`
}

// Scripted returns the seat binding for this identity.
func (id Identity) Scripted() domain.Scripted {
	name := id.DisplayName
	if name == "" {
		name = id.Username
	}
	level := id.Level
	if level <= 0 {
		level, _ = ParseDifficulty(id.Difficulty)
	}
	return domain.Scripted{BotID: id.UserID, Name: name, Level: level}
}

var (
	mu          sync.RWMutex
	identities  []Identity
	byID        map[string]Identity
	loadOnce    sync.Once
	provisioned sync.Once
	loadErr     error
)

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		var list []Identity
		if err := json.Unmarshal(data, &list); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		identities = list
		byID = make(map[string]Identity, len(list))
		for _, identity := range list {
			if identity.UserID != "" {
				byID[identity.UserID] = identity
			}
		}
	})
	return loadErr
}

// ProvisionBots ensures that bot accounts exist in the Nakama database and carry the is_bot metadata.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	provisioned.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		for i := range identities {
			identity := &identities[i]
			if identity.DeviceID == "" {
				continue
			}

			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":       true,
				"difficulty":   identity.Difficulty,
				"avatar_index": identity.AvatarIndex,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
			}

			byID[userID] = *identity
			logger.Info("ProvisionBots: Bot %s (%s) is ready. Difficulty: %s", identity.DisplayName, userID, identity.Difficulty)
		}
	})
}

// GetIdentity returns an identity by index (mod pool size).
// Without a loaded pool a synthetic medium-strength identity is returned.
func GetIdentity(index int) Identity {
	mu.RLock()
	defer mu.RUnlock()
	if len(identities) == 0 {
		return Identity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
			Difficulty:  "medium",
		}
	}
	return identities[index%len(identities)]
}

// IsBot reports whether the given user ID belongs to the bot pool.
func IsBot(userID string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := byID[userID]
	return ok
}

// DisplayName returns the display name for a bot ID, or an empty string if not a bot.
func DisplayName(userID string) string {
	mu.RLock()
	defer mu.RUnlock()
	identity, ok := byID[userID]
	if !ok {
		return ""
	}
	if identity.DisplayName == "" {
		return identity.Username
	}
	return identity.DisplayName
}
