package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/repositories/settings"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

// settingBinding syncs the shared config sheet. The key is the identifier;
// device-local keys stay out of it in both directions.
type settingBinding struct {
	device string
}

func (settingBinding) schema() normalize.Schema { return normalize.Config }
func (settingBinding) idColumn() string         { return "key" }
func (settingBinding) canGenerateID() bool      { return false }

func (settingBinding) load(ctx context.Context, repos *store.Repositories) ([]*models.Setting, error) {
	all, err := repos.Settings.List(ctx)
	if err != nil {
		return nil, err
	}
	shared := make([]*models.Setting, 0, len(all))
	for i := range all {
		if !settings.IsLocal(all[i].Key) {
			shared = append(shared, &all[i])
		}
	}
	return shared, nil
}

func (settingBinding) localMeta(s *models.Setting) meta {
	return meta{UUID: s.Key, UpdatedAt: s.UpdatedAt}
}

func (settingBinding) assignUUID(ctx context.Context, repos *store.Repositories, s *models.Setting, id string) error {
	return errors.New("setting keys are never generated")
}

func (settingBinding) parse(row normalize.Row) normalize.SettingRecord { return normalize.Setting(row) }

func (settingBinding) prepare(rec *normalize.SettingRecord) error {
	if rec.Key == "" {
		return invalid("config row without key")
	}
	if settings.IsLocal(rec.Key) {
		return errIgnored
	}
	return nil
}

func (settingBinding) remoteMeta(rec *normalize.SettingRecord) meta {
	return meta{UUID: rec.Key, UpdatedAt: rec.UpdatedAt}
}

func (settingBinding) setID(rec *normalize.SettingRecord, id string) { rec.Key = id }

func (settingBinding) insert(ctx context.Context, repos *store.Repositories, rec *normalize.SettingRecord) (*models.Setting, error) {
	s := &models.Setting{Key: rec.Key, Value: rec.Value, UpdatedAt: rec.UpdatedAt, SourceDevice: rec.SourceDevice}
	if err := repos.Settings.Set(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (settingBinding) update(ctx context.Context, repos *store.Repositories, s *models.Setting, rec *normalize.SettingRecord) error {
	next := models.Setting{Key: s.Key, Value: rec.Value, UpdatedAt: rec.UpdatedAt, SourceDevice: rec.SourceDevice}
	if err := repos.Settings.Set(ctx, &next); err != nil {
		return err
	}
	*s = next
	return nil
}

func (b settingBinding) record(s *models.Setting) normalize.SettingRecord {
	return normalize.SettingRecord{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt, SourceDevice: orDevice(s.SourceDevice, b.device)}
}

func (settingBinding) render(rec *normalize.SettingRecord) normalize.Cells {
	return normalize.RenderSetting(*rec)
}
