package remote

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/GameStoreGo/internal/domain"
)

// Achievements reads and evaluates the signed-in user's achievements.
type Achievements struct{ c *Client }

type achievementEntry struct {
	ID              wireString `json:"id"`
	AchievementType string     `json:"achievementType"`
	AchievementName string     `json:"achievementName"`
	Description     string     `json:"description"`
	Icon            string     `json:"icon"`
	UnlockedAt      wireTime   `json:"unlockedAt"`
}

func (e achievementEntry) achievement() domain.Achievement {
	return domain.Achievement{
		ID:          string(e.ID),
		Type:        e.AchievementType,
		Name:        e.AchievementName,
		Description: e.Description,
		Icon:        e.Icon,
		UnlockedAt:  e.UnlockedAt.Time(),
	}
}

func mapAchievements(entries []achievementEntry) []domain.Achievement {
	out := make([]domain.Achievement, 0, len(entries))
	for _, e := range entries {
		if e.AchievementType == "" {
			continue
		}
		out = append(out, e.achievement())
	}
	return out
}

func (r *Achievements) List(ctx context.Context) ([]domain.Achievement, error) {
	var entries []achievementEntry
	if err := r.c.call(ctx, "achievements.list", http.MethodGet, "/achievements", nil, &entries); err != nil {
		return nil, err
	}
	return mapAchievements(entries), nil
}

// Check asks the backend to award anything newly earned and returns only the
// achievements unlocked by this call.
func (r *Achievements) Check(ctx context.Context) ([]domain.Achievement, error) {
	var resp struct {
		NewAchievements []achievementEntry `json:"newAchievements"`
		Message         string             `json:"message"`
	}
	if err := r.c.call(ctx, "achievements.check", http.MethodPost, "/achievements/check", nil, &resp); err != nil {
		return nil, err
	}
	unlocked := mapAchievements(resp.NewAchievements)
	if len(unlocked) > 0 {
		r.c.logger.InfoContext(ctx, "achievements unlocked",
			slog.Int("count", len(unlocked)),
			slog.String("message", resp.Message),
		)
	}
	return unlocked, nil
}
