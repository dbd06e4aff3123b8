package services

import (
	"context"
	"sort"
	"sync"

	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// ── Fake UserStore ──

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
	reads  int
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[int64]*models.User), nextID: 100}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeUserStore) GetByIDs(_ context.Context, ids []int64) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	result := []*models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *fakeUserStore) List(_ context.Context, includeDeleted bool) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*models.User{}
	for _, u := range s.users {
		if includeDeleted || !u.IsDeleted {
			cp := *u
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *fakeUserStore) SoftDelete(_ context.Context, id, deletedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return database.ErrNotFound
	}
	u.IsDeleted = true
	u.IsActive = false
	u.DeletedBy = &deletedBy
	return nil
}

func (s *fakeUserStore) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return database.ErrNotFound
	}
	u.IsActive = active
	return nil
}

// ── Fake UserDirectory ──

type fakeDirectory struct {
	users map[int64]*models.User
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[int64]*models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetUser(_ context.Context, id int64) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, notFoundError("user", id)
}

func (d *fakeDirectory) GetUsers(_ context.Context, ids []int64) (map[int64]*models.User, error) {
	result := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

func staff(id int64, name string) *models.User {
	return &models.User{ID: id, Username: name, Name: name, Role: models.RoleTechnician, IsActive: true}
}

// ── Fake AssignmentStore ──

type fakeAssignmentStore struct {
	mu           sync.Mutex
	assignments  map[int64]*models.WorkAssignment
	nextID       int64
	openCheckins func(assignmentID int64) int
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{assignments: make(map[int64]*models.WorkAssignment)}
}

func (s *fakeAssignmentStore) put(a *models.WorkAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assignments[a.ID] = &cp
	if a.ID > s.nextID {
		s.nextID = a.ID
	}
}

func (s *fakeAssignmentStore) Create(_ context.Context, a *models.WorkAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	cp := *a
	s.assignments[a.ID] = &cp
	return nil
}

func (s *fakeAssignmentStore) GetByID(_ context.Context, id int64) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeAssignmentStore) sorted(keep func(*models.WorkAssignment) bool) []*models.WorkAssignment {
	result := []*models.WorkAssignment{}
	for _, a := range s.assignments {
		if keep(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

func (s *fakeAssignmentStore) List(_ context.Context) ([]*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(*models.WorkAssignment) bool { return true }), nil
}

func (s *fakeAssignmentStore) ListByAssignedTo(_ context.Context, userID int64) ([]*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a *models.WorkAssignment) bool { return a.AssignedTo == userID }), nil
}

func (s *fakeAssignmentStore) ListCandidatesForUsers(_ context.Context, userIDs []int64) ([]*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a *models.WorkAssignment) bool {
		if a.AssignedUsers.Valid || a.AssignedUsers.Malformed {
			return true
		}
		for _, id := range userIDs {
			if a.AssignedTo == id {
				return true
			}
		}
		return false
	}), nil
}

func (s *fakeAssignmentStore) UpdateWithLock(_ context.Context, id int64, mutate func(a *models.WorkAssignment) error) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assignments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *current
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	stored := cp
	s.assignments[id] = &stored
	return &cp, nil
}

func (s *fakeAssignmentStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[id]; !ok {
		return false, nil
	}
	if s.openCheckins != nil && s.openCheckins(id) > 0 {
		return false, database.ErrOpenCheckins
	}
	delete(s.assignments, id)
	return true, nil
}

// ── Fake CheckinStore ──

type fakeCheckinStore struct {
	mu          sync.Mutex
	checkins    map[int64]*models.WorkCheckin
	nextID      int64
	assignments *fakeAssignmentStore
}

func newFakeCheckinStore(assignments *fakeAssignmentStore) *fakeCheckinStore {
	s := &fakeCheckinStore{checkins: make(map[int64]*models.WorkCheckin), assignments: assignments}
	assignments.openCheckins = s.countOpen
	return s
}

func (s *fakeCheckinStore) countOpen(assignmentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.checkins {
		if c.AssignmentID == assignmentID && c.IsOpen() {
			n++
		}
	}
	return n
}

func (s *fakeCheckinStore) CheckIn(ctx context.Context, c *models.WorkCheckin) error {
	a, err := s.assignments.GetByID(ctx, c.AssignmentID)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		return database.ErrAssignmentClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.checkins {
		if existing.AssignmentID == c.AssignmentID && existing.UserID == c.UserID && existing.IsOpen() {
			return database.ErrAlreadyCheckedIn
		}
	}
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = c.CheckInTime
	cp := *c
	s.checkins[c.ID] = &cp
	return nil
}

func (s *fakeCheckinStore) UpdateWithLock(_ context.Context, id int64, mutate func(c *models.WorkCheckin) (bool, error)) (*models.WorkCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.checkins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *current
	changed, err := mutate(&cp)
	if err != nil {
		return nil, err
	}
	if changed {
		stored := cp
		s.checkins[id] = &stored
	}
	return &cp, nil
}

func (s *fakeCheckinStore) GetByID(_ context.Context, id int64) (*models.WorkCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.checkins[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeCheckinStore) FindOpen(_ context.Context, userID, assignmentID int64) (*models.WorkCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.checkins {
		if c.UserID == userID && c.AssignmentID == assignmentID && c.IsOpen() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCheckinStore) list(keep func(*models.WorkCheckin) bool) []*models.WorkCheckin {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*models.WorkCheckin{}
	for _, c := range s.checkins {
		if keep(c) {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CheckInTime.Equal(result[j].CheckInTime) {
			return result[i].ID > result[j].ID
		}
		return result[i].CheckInTime.After(result[j].CheckInTime)
	})
	return result
}

func (s *fakeCheckinStore) ListByAssignment(_ context.Context, assignmentID int64) ([]*models.WorkCheckin, error) {
	return s.list(func(c *models.WorkCheckin) bool { return c.AssignmentID == assignmentID }), nil
}

func (s *fakeCheckinStore) ListByUser(_ context.Context, userID int64) ([]*models.WorkCheckin, error) {
	return s.list(func(c *models.WorkCheckin) bool { return c.UserID == userID }), nil
}

// ── Recording Notifier ──

type notifiedEvent struct {
	kind         string
	assignmentID int64
	from         models.AssignmentStatus
	to           models.AssignmentStatus
	userIDs      []int64
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

func (n *recordingNotifier) record(kind string, a *models.WorkAssignment, from models.AssignmentStatus, users []*models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	n.events = append(n.events, notifiedEvent{kind: kind, assignmentID: a.ID, from: from, to: a.Status, userIDs: ids})
}

func (n *recordingNotifier) AssignmentCreated(a *models.WorkAssignment, assignees []*models.User) {
	n.record("created", a, "", assignees)
}

func (n *recordingNotifier) StatusChanged(a *models.WorkAssignment, from models.AssignmentStatus, assignees []*models.User) {
	n.record("status", a, from, assignees)
}

// ── Fake notify.Gateway ──

type fakeGateway struct {
	mu        sync.Mutex
	sent      map[string]string
	sendErr   error
	healthErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sent: make(map[string]string)}
}

func (g *fakeGateway) Send(_ context.Context, phone, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent[phone] = message
	return nil
}

func (g *fakeGateway) Health(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthErr
}

func (g *fakeGateway) Name() string {
	return "fake"
}
