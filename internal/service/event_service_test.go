package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

type cacheStub struct {
	values  map[string][]byte
	sets    int
	deletes []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{values: make(map[string][]byte)}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.sets++
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deletes = append(c.deletes, pattern)
	c.values = make(map[string][]byte)
	return nil
}

func TestEventServiceListCachesMonth(t *testing.T) {
	dad, mom := weekendEvents()
	events := newEventStoreStub(dad, mom)
	cache := newCacheStub()
	svc := NewEventService(events, events, nil, cache, time.Minute, nil, nil)

	query := dto.EventQuery{Year: 2024, Month: time.September}
	first, err := svc.List(context.Background(), query, parentA())
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, cache.sets)

	// Second read is served from cache even if the store changes.
	delete(events.events, "e2")
	second, err := svc.List(context.Background(), query, parentA())
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, 1, cache.sets)
}

func TestEventServiceCreateInvalidatesCache(t *testing.T) {
	dad, mom := weekendEvents()
	events := newEventStoreStub(dad, mom)
	cache := newCacheStub()
	audit := &auditStub{}
	svc := NewEventService(events, events, nil, cache, time.Minute, audit, nil)

	_, err := svc.List(context.Background(), dto.EventQuery{Year: 2024, Month: time.September}, parentA())
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title: "Soccer Practice",
		Date:  time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC),
		Type:  models.EventTypeActivity,
	}, parentA())
	require.NoError(t, err)
	require.Equal(t, "fam-1", created.FamilyID)
	require.Contains(t, cache.deletes, "events:fam-1:*")
	require.Len(t, audit.logs, 1)
}

func TestEventServiceCreateRejectsUnknownType(t *testing.T) {
	events := newEventStoreStub()
	svc := NewEventService(events, events, nil, nil, time.Minute, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title: "Mystery",
		Date:  time.Now(),
		Type:  models.EventType("PARTY"),
	}, parentA())
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventServiceGetScopedToFamily(t *testing.T) {
	other := makeEvent("e9", "Other Family Weekend", time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC), models.EventTypeCustody)
	other.FamilyID = "fam-2"
	events := newEventStoreStub(other)
	svc := NewEventService(events, events, nil, nil, time.Minute, nil, nil)

	_, err := svc.Get(context.Background(), "e9", parentA())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
