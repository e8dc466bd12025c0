package planning

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/luc118i/operacional-app/internal/scheme"
)

func TestService_IdleDraftsExpire(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(Config{
		Repository:      scheme.NewInMemoryRepository(),
		Logger:          zerolog.Nop(),
		SessionTTL:      time.Hour,
		CleanupInterval: time.Minute,
	})
	svc.now = func() time.Time { return now }

	stale := svc.NewDraft(Header{LineCode: "1"})
	now = now.Add(40 * time.Minute)
	fresh := svc.NewDraft(Header{LineCode: "2"})

	now = now.Add(30 * time.Minute)
	_, err := svc.Draft(fresh.ID)
	assert.NoError(t, err)

	_, err = svc.Draft(stale.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.Equal(t, 1, svc.Len())
}
