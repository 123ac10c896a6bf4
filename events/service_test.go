package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trident14/EMP-backend/apperror"
	"github.com/Trident14/EMP-backend/auth"
)

// fakeStore is an in-memory Store. Its AddAttendee/RemoveAttendee honor the
// same atomic add-if-absent / remove-if-present contract as the Postgres
// implementation, which is what the concurrency properties ride on.
type fakeStore struct {
	mu        sync.Mutex
	events    map[string]*Event
	attendees map[string][]string // eventID -> ordered user ids
	users     map[string]*auth.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:    make(map[string]*Event),
		attendees: make(map[string][]string),
		users:     make(map[string]*auth.User),
	}
}

func (f *fakeStore) addUser(id, username string, guest bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &auth.User{ID: id, Username: username, Email: username + "@example.com", IsGuest: guest}
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func (f *fakeStore) CreateEvent(ctx context.Context, event *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	f.events[event.ID] = &cp
	f.attendees[event.ID] = []string{}
	return nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, id string) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, apperror.NewNotFoundError("event not found", nil)
}

func (f *fakeStore) HasDuplicate(ctx context.Context, creatorID, name string, date time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.CreatorID == creatorID && e.Name == name && e.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) summarize(e *Event) EventSummary {
	creator := ""
	if u, ok := f.users[e.CreatorID]; ok {
		creator = u.Username
	}
	return EventSummary{
		ID: e.ID, Name: e.Name, Description: e.Description, Date: e.Date,
		Location: e.Location, Creator: creator, AttendeesCount: len(f.attendees[e.ID]),
	}
}

func (f *fakeStore) ListEvents(ctx context.Context) ([]EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []EventSummary{}
	for _, e := range f.events {
		out = append(out, f.summarize(e))
	}
	return out, nil
}

func (f *fakeStore) ListByCreator(ctx context.Context, creatorID string) ([]EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []EventSummary{}
	for _, e := range f.events {
		if e.CreatorID == creatorID {
			out = append(out, f.summarize(e))
		}
	}
	return out, nil
}

func (f *fakeStore) ListByAttendee(ctx context.Context, userID string) ([]EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []EventSummary{}
	for id, members := range f.attendees {
		for _, m := range members {
			if m == userID {
				out = append(out, f.summarize(f.events[id]))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, event *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; !ok {
		return apperror.NewNotFoundError("event not found", nil)
	}
	event.UpdatedAt = time.Now()
	cp := *event
	f.events[event.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return apperror.NewNotFoundError("event not found", nil)
	}
	delete(f.events, id)
	delete(f.attendees, id)
	return nil
}

func (f *fakeStore) AddAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return false, apperror.NewNotFoundError("event not found", nil)
	}
	for _, m := range f.attendees[eventID] {
		if m == userID {
			return false, nil
		}
	}
	f.attendees[eventID] = append(f.attendees[eventID], userID)
	return true, nil
}

func (f *fakeStore) RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.attendees[eventID]
	for i, m := range members {
		if m == userID {
			f.attendees[eventID] = append(members[:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListAttendees(ctx context.Context, eventID string) ([]Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Attendee{}
	for _, id := range f.attendees[eventID] {
		u := f.users[id]
		out = append(out, Attendee{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return out, nil
}

// recordingNotifier captures broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	global []broadcastCall
	rooms  []broadcastCall
}

type broadcastCall struct {
	room    string
	event   string
	payload interface{}
}

func (n *recordingNotifier) Broadcast(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.global = append(n.global, broadcastCall{event: event, payload: payload})
}

func (n *recordingNotifier) BroadcastToRoom(room, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, broadcastCall{room: room, event: event, payload: payload})
}

func (n *recordingNotifier) globalCalls() []broadcastCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]broadcastCall{}, n.global...)
}

func (n *recordingNotifier) roomCalls() []broadcastCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]broadcastCall{}, n.rooms...)
}

// newTestService wires a service over fakes with one creator, two plain
// users, a guest, and one event.
func newTestService(t *testing.T) (*EventService, *fakeStore, *recordingNotifier, *Event) {
	t.Helper()
	store := newFakeStore()
	store.addUser("creator", "carol", false)
	store.addUser("alice", "alice", false)
	store.addUser("bob", "bob", false)
	store.addUser("guest", "guest", true)

	notifier := &recordingNotifier{}
	svc := NewEventService(store, store, notifier)

	resp, err := svc.Create(context.Background(), "creator", CreateEventRequest{
		Name:        "Go Meetup",
		Description: "Monthly gathering",
		Date:        time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		Location:    "Community Hall",
	})
	require.NoError(t, err)
	return svc, store, notifier, resp.Event
}

func TestJoin(t *testing.T) {
	t.Parallel()
	svc, _, notifier, event := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AttendeesCount)
	require.Len(t, resp.Attendees, 1)
	assert.Equal(t, "alice", resp.Attendees[0].Username)

	// attendeeUpdated must go to both the event room and the global scope.
	rooms := notifier.roomCalls()
	require.Len(t, rooms, 1)
	assert.Equal(t, event.ID, rooms[0].room)
	assert.Equal(t, NotifyAttendeeUpdated, rooms[0].event)

	change, ok := rooms[0].payload.(AttendeeChange)
	require.True(t, ok)
	assert.Equal(t, event.ID, change.EventID)
	assert.Equal(t, 1, change.AttendeesCount)
}

func TestJoin_AlreadyMember(t *testing.T) {
	t.Parallel()
	svc, _, notifier, event := newTestService(t)
	ctx := context.Background()

	_, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)
	broadcastsAfterFirst := len(notifier.globalCalls())

	_, err = svc.Join(ctx, event.ID, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))

	// No mutation, no broadcast on the rejected join.
	resp, err := svc.Leave(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.AttendeesCount)
	assert.Len(t, notifier.globalCalls(), broadcastsAfterFirst+1) // only the leave added one
}

func TestLeave_NotMember(t *testing.T) {
	t.Parallel()
	svc, _, notifier, event := newTestService(t)
	ctx := context.Background()

	before := len(notifier.globalCalls())
	_, err := svc.Leave(ctx, event.ID, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
	assert.Len(t, notifier.globalCalls(), before, "no broadcast on rejected leave")
}

func TestJoinLeaveJoin_Idempotent(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)
	ctx := context.Background()

	_, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Leave(ctx, event.ID, "alice")
	require.NoError(t, err)
	resp, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.AttendeesCount)
	assert.Equal(t, "alice", resp.Attendees[0].Username)
}

func TestJoinLeave_Scenario(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AttendeesCount)

	_, err = svc.Join(ctx, event.ID, "alice")
	require.Error(t, err, "repeat join must be rejected")

	resp, err = svc.Join(ctx, event.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.AttendeesCount)
	assert.Equal(t, "alice", resp.Attendees[0].Username, "join order preserved")
	assert.Equal(t, "bob", resp.Attendees[1].Username)

	resp, err = svc.Leave(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AttendeesCount)
	assert.Equal(t, "bob", resp.Attendees[0].Username)
}

func TestJoin_ConcurrentSamePair(t *testing.T) {
	t.Parallel()
	svc, store, _, event := newTestService(t)
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Join(ctx, event.ID, "alice"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent join may succeed")

	attendees, err := store.ListAttendees(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 1, "membership entry must be unique")
}

func TestJoin_EventNotFound(t *testing.T) {
	t.Parallel()
	svc, _, notifier, _ := newTestService(t)

	before := len(notifier.globalCalls())
	_, err := svc.Join(context.Background(), "missing-event", "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Len(t, notifier.globalCalls(), before, "no broadcast for missing event")
}

func TestCreate_GuestForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "guest", CreateEventRequest{
		Name: "Party", Description: "x", Date: time.Now(), Location: "here",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestCreate_Duplicate(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)

	_, err := svc.Create(context.Background(), "creator", CreateEventRequest{
		Name: event.Name, Description: "again", Date: event.Date, Location: "elsewhere",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
}

func TestUpdate_CreatorOnly(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)
	ctx := context.Background()

	name := "Renamed"
	_, err := svc.Update(ctx, event.ID, "alice", UpdateEventRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	updated, err := svc.Update(ctx, event.ID, "creator", UpdateEventRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, event.Description, updated.Description, "unset fields stay unchanged")
}

func TestDelete_CreatorOnly(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)
	ctx := context.Background()

	err := svc.Delete(ctx, event.ID, "bob")
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, svc.Delete(ctx, event.ID, "creator"))

	_, err = svc.Join(ctx, event.ID, "alice")
	assert.True(t, apperror.IsNotFound(err))
}

func TestRegistrations(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)
	ctx := context.Background()

	_, err := svc.Join(ctx, event.ID, "alice")
	require.NoError(t, err)

	mine, err := svc.Registrations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, event.ID, mine[0].ID)
	assert.Equal(t, 1, mine[0].AttendeesCount)

	none, err := svc.Registrations(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMine(t *testing.T) {
	t.Parallel()
	svc, _, _, event := newTestService(t)

	mine, err := svc.Mine(context.Background(), "creator")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, event.ID, mine[0].ID)
	assert.Equal(t, "carol", mine[0].Creator)
}
