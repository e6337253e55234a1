package broadcast_test

import (
	"context"
	"sync"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"
)

type fakeUserStore struct {
	users   []models.User
	listErr error
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

func (f *fakeUserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].UserID == userID {
			return &f.users[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeAlarmStore struct {
	mu              sync.Mutex
	emergencyAlarms map[string]*models.Alarm
	byType          map[string][]models.Alarm
	getErr          map[string]error
	listErr         error
	patched         map[string]time.Time
}

func newFakeAlarmStore() *fakeAlarmStore {
	return &fakeAlarmStore{
		emergencyAlarms: make(map[string]*models.Alarm),
		byType:          make(map[string][]models.Alarm),
		getErr:          make(map[string]error),
		patched:         make(map[string]time.Time),
	}
}

func (f *fakeAlarmStore) GetUserEmergencyAlarm(ctx context.Context, userID string) (*models.Alarm, error) {
	if err := f.getErr[userID]; err != nil {
		return nil, err
	}
	alarm, ok := f.emergencyAlarms[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return alarm, nil
}

func (f *fakeAlarmStore) ListActiveAlarmsByType(ctx context.Context, alarmType string) ([]models.Alarm, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byType[alarmType], nil
}

func (f *fakeAlarmStore) PatchLastTriggered(ctx context.Context, alarmID string, triggeredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patched[alarmID] = triggeredAt
	return nil
}

type fakeSettingsStore struct {
	settings map[string]*models.AlarmSettings
	err      map[string]error
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{
		settings: make(map[string]*models.AlarmSettings),
		err:      make(map[string]error),
	}
}

func (f *fakeSettingsStore) GetSettings(ctx context.Context, userID string) (*models.AlarmSettings, error) {
	if err := f.err[userID]; err != nil {
		return nil, err
	}
	s, ok := f.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

type fakeTriggerStore struct {
	mu       sync.Mutex
	triggers []*models.AlarmTrigger
	failFor  map[string]error
}

func newFakeTriggerStore() *fakeTriggerStore {
	return &fakeTriggerStore{failFor: make(map[string]error)}
}

func (f *fakeTriggerStore) CreateTrigger(ctx context.Context, trigger *models.AlarmTrigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[trigger.AlarmID]; err != nil {
		return err
	}
	f.triggers = append(f.triggers, trigger)
	return nil
}

func (f *fakeTriggerStore) all() []*models.AlarmTrigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.AlarmTrigger, len(f.triggers))
	copy(out, f.triggers)
	return out
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []*models.AlarmTrigger
	err  error
}

func (f *fakeDispatcher) Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, trigger)
	return nil
}

func (f *fakeDispatcher) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
