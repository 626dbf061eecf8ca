package progress

import (
	"context"
	"fmt"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
	"github.com/spbe-academy/devops-academy/internal/platform/validation"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// Playback is a position report from the video player.
type Playback struct {
	VideoIndex      int     `json:"video_index" validate:"gte=0"`
	PositionSeconds float64 `json:"position_seconds" validate:"gte=0"`
	ProgressPercent float64 `json:"progress_percent" validate:"gte=0,lte=100"`
}

// checkVideo validates a video index against the module. Modules that list no
// videos accept any non-negative index.
func (t *Tracker) checkVideo(moduleID string, index int) error {
	ref, ok := t.catalog.GetModule(moduleID)
	if !ok {
		return apperr.NewValidation("module_id", "exists")
	}
	if index < 0 || (len(ref.Module.Videos) > 0 && index >= len(ref.Module.Videos)) {
		return apperr.NewValidation("video_index", fmt.Sprintf("out of range for %s", moduleID))
	}
	return nil
}

// TrackVideo stores the playback position of a module video.
func (t *Tracker) TrackVideo(ctx context.Context, moduleID string, p Playback) (store.VideoProgress, error) {
	userID, err := t.userID()
	if err != nil {
		return store.VideoProgress{}, err
	}
	if err := validation.Struct(p); err != nil {
		return store.VideoProgress{}, err
	}
	if err := t.checkVideo(moduleID, p.VideoIndex); err != nil {
		return store.VideoProgress{}, err
	}

	v, err := t.store.UpsertVideoProgress(ctx, store.VideoProgress{
		UserID:          userID,
		ModuleID:        moduleID,
		VideoIndex:      p.VideoIndex,
		PositionSeconds: p.PositionSeconds,
		ProgressPercent: p.ProgressPercent,
	})
	if err != nil {
		return store.VideoProgress{}, fmt.Errorf("tracking video %s#%d: %w", moduleID, p.VideoIndex, err)
	}
	return v, nil
}

// MarkVideoCompleted records a module video as fully watched.
func (t *Tracker) MarkVideoCompleted(ctx context.Context, moduleID string, videoIndex int) (store.VideoProgress, error) {
	userID, err := t.userID()
	if err != nil {
		return store.VideoProgress{}, err
	}
	if err := t.checkVideo(moduleID, videoIndex); err != nil {
		return store.VideoProgress{}, err
	}

	current, err := t.store.GetVideoProgress(ctx, userID, moduleID, videoIndex)
	if err != nil {
		return store.VideoProgress{}, fmt.Errorf("reading video %s#%d: %w", moduleID, videoIndex, err)
	}

	now := t.now()
	v := store.VideoProgress{
		UserID:          userID,
		ModuleID:        moduleID,
		VideoIndex:      videoIndex,
		ProgressPercent: 100,
		CompletedAt:     &now,
	}
	if current != nil {
		v.PositionSeconds = current.PositionSeconds
	}

	v, err = t.store.UpsertVideoProgress(ctx, v)
	if err != nil {
		return store.VideoProgress{}, fmt.Errorf("completing video %s#%d: %w", moduleID, videoIndex, err)
	}

	t.log(ctx, userID, activity.TypeVideoCompleted, t.printer.Sprintf(i18n.MsgVideoCompleted, moduleID), map[string]any{
		"module_id":   moduleID,
		"video_index": videoIndex,
	})
	return v, nil
}

// VideoProgress returns the stored playback state, or nil when the video was
// never played.
func (t *Tracker) VideoProgress(ctx context.Context, moduleID string, videoIndex int) (*store.VideoProgress, error) {
	userID, err := t.userID()
	if err != nil {
		return nil, err
	}
	v, err := t.store.GetVideoProgress(ctx, userID, moduleID, videoIndex)
	if err != nil {
		return nil, fmt.Errorf("reading video %s#%d: %w", moduleID, videoIndex, err)
	}
	return v, nil
}

// IsVideoCompleted reports whether a module video has been fully watched.
func (t *Tracker) IsVideoCompleted(ctx context.Context, moduleID string, videoIndex int) (bool, error) {
	v, err := t.VideoProgress(ctx, moduleID, videoIndex)
	if err != nil {
		return false, err
	}
	return v != nil && v.CompletedAt != nil, nil
}
