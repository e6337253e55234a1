package evaluator_test

import (
	"context"
	"sync"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"
)

// fakeAlarmStore 内存版报警存储，MarkTriggered 模拟存储层条件更新的去重闸门
type fakeAlarmStore struct {
	mu            sync.Mutex
	alarms        []models.Alarm
	listErr       error
	markErr       map[string]error
	lastTriggered map[string]time.Time
	markCalls     int
}

func newFakeAlarmStore(alarms ...models.Alarm) *fakeAlarmStore {
	return &fakeAlarmStore{
		alarms:        alarms,
		markErr:       make(map[string]error),
		lastTriggered: make(map[string]time.Time),
	}
}

func (f *fakeAlarmStore) ListActiveScheduledAlarms(ctx context.Context) ([]models.Alarm, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Alarm, len(f.alarms))
	copy(out, f.alarms)
	return out, nil
}

func (f *fakeAlarmStore) MarkTriggered(ctx context.Context, alarmID string, now time.Time, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if err := f.markErr[alarmID]; err != nil {
		return false, err
	}
	if last, ok := f.lastTriggered[alarmID]; ok && last.After(now.Add(-window)) {
		return false, nil
	}
	f.lastTriggered[alarmID] = now
	return true, nil
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

func (f *fakeTriggerStore) byType(triggerType string) []*models.AlarmTrigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AlarmTrigger
	for _, trigger := range f.triggers {
		if trigger.TriggerType == triggerType {
			out = append(out, trigger)
		}
	}
	return out
}

type fakeUserStore struct {
	users map[string]*models.User
	err   map[string]error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{
		users: make(map[string]*models.User),
		err:   make(map[string]error),
	}
	for _, u := range users {
		f.users[u.UserID] = u
	}
	return f
}

func (f *fakeUserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := f.err[userID]; err != nil {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
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
