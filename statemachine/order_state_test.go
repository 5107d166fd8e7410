package statemachine

import (
	"testing"
	"time"

	"canteen-api/apperr"
	"canteen-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Preparing ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, st)

	_, err = ParseStatus("delivered")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "placed, preparing, ready, served, cancelled")
}

func TestCanStaffTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		wantErr bool
	}{
		{"next step", models.StatusPlaced, models.StatusPreparing, false},
		{"skip to served", models.StatusPlaced, models.StatusServed, false},
		{"cancel while preparing", models.StatusPreparing, models.StatusCancelled, false},
		{"same state", models.StatusReady, models.StatusReady, true},
		{"out of served", models.StatusServed, models.StatusPlaced, true},
		{"out of cancelled", models.StatusCancelled, models.StatusPreparing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanStaffTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.KindInvalidStatusTransition), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCanUserCancel(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  models.OrderStatus
		elapsed time.Duration
		want    apperr.Kind
	}{
		{"fresh", models.StatusPlaced, 0, ""},
		{"89 seconds", models.StatusPlaced, 89 * time.Second, ""},
		{"exactly 90 seconds", models.StatusPlaced, 90 * time.Second, ""},
		{"91 seconds", models.StatusPlaced, 91 * time.Second, apperr.KindCancellationWindowExpired},
		{"preparing within window", models.StatusPreparing, 10 * time.Second, apperr.KindOrderNotCancellable},
		{"cancelled after window", models.StatusCancelled, 5 * time.Minute, apperr.KindOrderNotCancellable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanUserCancel(tt.status, t0, t0.Add(tt.elapsed))
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.Equal(t,
		[]models.OrderStatus{models.StatusPreparing, models.StatusCancelled},
		ValidTransitionsFrom(models.StatusPlaced))
	assert.Empty(t, ValidTransitionsFrom(models.StatusServed))
	assert.True(t, IsTerminal(models.StatusCancelled))
	assert.False(t, IsTerminal(models.StatusReady))
	assert.Len(t, AllStatuses(), 5)
}
