package service

import (
	"context"
	"testing"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAdminService(t *testing.T) (sqlmock.Sqlmock, *AlarmAdminService) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	alarmRepo := repository.NewAlarmRepository(db, zap.NewNop())
	return mock, NewAlarmAdminService(alarmRepo, zap.NewNop())
}

func TestCreateAlarm(t *testing.T) {
	mock, svc := setupAdminService(t)

	mock.ExpectExec(`INSERT INTO alarms`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alarmID, err := svc.CreateAlarm(context.Background(), CreateAlarmInput{
		UserID:    "user-1",
		Title:     "Morning medication",
		AlarmType: models.AlarmTypeMedical,
		IsActive:  true,
		Priority:  models.PriorityHigh,
		Schedule: &models.Schedule{
			StartTime:  "08:00",
			EndTime:    "09:00",
			DaysOfWeek: []int{1, 2, 3, 4, 5},
		},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(alarmID)
	assert.NoError(t, err, "alarm_id must be a generated uuid")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlarm_Validation(t *testing.T) {
	_, svc := setupAdminService(t)

	tests := []struct {
		name    string
		input   CreateAlarmInput
		wantErr string
	}{
		{
			"missing user",
			CreateAlarmInput{Title: "t", AlarmType: models.AlarmTypeMedical, Priority: models.PriorityLow},
			"user_id is required",
		},
		{
			"missing title",
			CreateAlarmInput{UserID: "user-1", AlarmType: models.AlarmTypeMedical, Priority: models.PriorityLow},
			"title is required",
		},
		{
			"bad alarm type",
			CreateAlarmInput{UserID: "user-1", Title: "t", AlarmType: "reminder", Priority: models.PriorityLow},
			"invalid alarm type",
		},
		{
			"bad priority",
			CreateAlarmInput{UserID: "user-1", Title: "t", AlarmType: models.AlarmTypeMedical, Priority: "urgent"},
			"invalid priority",
		},
		{
			"bad schedule time",
			CreateAlarmInput{
				UserID: "user-1", Title: "t", AlarmType: models.AlarmTypeMedical, Priority: models.PriorityLow,
				Schedule: &models.Schedule{StartTime: "8:00", EndTime: "09:00"},
			},
			"invalid schedule start_time",
		},
		{
			"bad schedule weekday",
			CreateAlarmInput{
				UserID: "user-1", Title: "t", AlarmType: models.AlarmTypeMedical, Priority: models.PriorityLow,
				Schedule: &models.Schedule{StartTime: "08:00", EndTime: "09:00", DaysOfWeek: []int{7}},
			},
			"invalid schedule weekday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAlarm(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUpdateAlarm_ValidatesTypedFields(t *testing.T) {
	_, svc := setupAdminService(t)

	err := svc.UpdateAlarm(context.Background(), "alarm-1", map[string]interface{}{
		"priority": "urgent",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestDeleteAlarm_NotFound(t *testing.T) {
	mock, svc := setupAdminService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM alarm_triggers`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM alarms`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.DeleteAlarm(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestValidWallClock(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"00:00", true},
		{"08:30", true},
		{"23:59", true},
		{"24:00", false},
		{"12:60", false},
		{"8:00", false},
		{"0800", false},
		{"ab:cd", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, validWallClock(tt.value))
		})
	}
}
