package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/repository"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

// mockStore is an in-memory database shared by the mock repositories.
// Deleting a user cascades to its profiles, as the SQL schema does.
type mockStore struct {
	mu sync.Mutex

	users    map[int64]*domain.User
	profiles map[int64]*domain.Profile
	students map[int64]*domain.StudentProfile
	faculty  map[int64]*domain.FacultyProfile
	subjects map[int64]*domain.Subject

	nextUserID    int64
	nextProfileID int64
	nextDomainID  int64
	nextSubjectID int64

	profileUpdateErr error
	listPendingErr   error

	// provisionErr fails domain profile creation for the given user ids.
	provisionErr map[int64]error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         make(map[int64]*domain.User),
		profiles:      make(map[int64]*domain.Profile),
		students:      make(map[int64]*domain.StudentProfile),
		faculty:       make(map[int64]*domain.FacultyProfile),
		subjects:      make(map[int64]*domain.Subject),
		provisionErr:  make(map[int64]error),
		nextUserID:    1,
		nextProfileID: 1,
		nextDomainID:  1,
		nextSubjectID: 1,
	}
}

func (s *mockStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:    &mockUserRepository{s},
		Profile: &mockProfileRepository{s},
		Student: &mockStudentRepository{s},
		Faculty: &mockFacultyRepository{s},
		Subject: &mockSubjectRepository{s},
		Tx:      mockTxManager{},
	}
}

// addUser inserts a user directly, bypassing the safety net.
func (s *mockStore) addUser(username string, active, superuser bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, _ := auth.HashPassword("password123")
	u := &domain.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: hash,
		IsActive:     active,
		IsSuperuser:  superuser,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextUserID++
	s.users[u.ID] = u
	return u
}

func (s *mockStore) addProfile(userID int64, role domain.Role, approved bool) *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.Profile{ID: s.nextProfileID, UserID: userID, Role: role, IsApproved: approved, CreatedAt: time.Now().UTC()}
	s.nextProfileID++
	s.profiles[userID] = p
	return p
}

func (s *mockStore) addFaculty(userID int64, dept domain.Department) *domain.FacultyProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &domain.FacultyProfile{ID: s.nextDomainID, UserID: userID, EmployeeNumber: domain.EmployeeNumber(userID), Department: dept}
	s.nextDomainID++
	s.faculty[userID] = f
	return f
}

func (s *mockStore) addSubject(code string, dept domain.Department, semester int) *domain.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &domain.Subject{ID: s.nextSubjectID, Code: code, Name: code, Department: dept, Semester: semester, Credits: domain.DefaultCredits}
	s.nextSubjectID++
	s.subjects[sub.ID] = sub
	return sub
}

type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// Users
// =============================================================================

type mockUserRepository struct{ s *mockStore }

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.s.nextUserID
	m.s.nextUserID++
	stored := *user
	m.s.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	stored := *user
	m.s.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.s.users, id)
	delete(m.s.profiles, id)
	delete(m.s.students, id)
	if f, ok := m.s.faculty[id]; ok {
		for _, sub := range m.s.subjects {
			if sub.FacultyID != nil && *sub.FacultyID == f.ID {
				sub.FacultyID = nil
			}
		}
		delete(m.s.faculty, id)
	}
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var items []*domain.User
	for _, u := range m.s.users {
		out := *u
		items = append(items, &out)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	total := int64(len(items))
	if opts.Offset < len(items) {
		items = items[opts.Offset:]
	} else {
		items = nil
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return &repository.ListResult[domain.User]{Items: items, Total: total, Offset: opts.Offset, Limit: opts.Limit}, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	return err == nil, nil
}

// =============================================================================
// Profiles
// =============================================================================

type mockProfileRepository struct{ s *mockStore }

func (m *mockProfileRepository) CreateIfAbsent(ctx context.Context, profile *domain.Profile) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if existing, ok := m.s.profiles[profile.UserID]; ok {
		*profile = *existing
		return false, nil
	}
	if _, ok := m.s.users[profile.UserID]; !ok {
		return false, domain.ErrUserNotFound
	}
	profile.ID = m.s.nextProfileID
	m.s.nextProfileID++
	stored := *profile
	m.s.profiles[profile.UserID] = &stored
	return true, nil
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.profiles[userID]; ok {
		out := *p
		return &out, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.profileUpdateErr != nil {
		return m.s.profileUpdateErr
	}
	if _, ok := m.s.profiles[profile.UserID]; !ok {
		return domain.ErrProfileNotFound
	}
	stored := *profile
	m.s.profiles[profile.UserID] = &stored
	return nil
}

func (m *mockProfileRepository) ListPending(ctx context.Context) ([]*domain.PendingUser, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.listPendingErr != nil {
		return nil, m.s.listPendingErr
	}
	var out []*domain.PendingUser
	for userID, p := range m.s.profiles {
		if p.IsApproved {
			continue
		}
		u := *m.s.users[userID]
		profile := *p
		out = append(out, &domain.PendingUser{User: &u, Profile: &profile})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile.ID > out[j].Profile.ID })
	return out, nil
}

func (m *mockProfileRepository) ListUnprovisioned(ctx context.Context, afterID int64, limit int) ([]*domain.Inconsistency, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Inconsistency
	for userID, p := range m.s.profiles {
		if !p.IsApproved || userID <= afterID {
			continue
		}
		missing := false
		switch p.Role {
		case domain.RoleFaculty:
			_, ok := m.s.faculty[userID]
			missing = !ok
		case domain.RoleStudent:
			_, ok := m.s.students[userID]
			missing = !ok
		}
		if missing {
			out = append(out, &domain.Inconsistency{UserID: userID, Username: m.s.users[userID].Username, Role: p.Role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// =============================================================================
// Domain profiles
// =============================================================================

type mockStudentRepository struct{ s *mockStore }

func (m *mockStudentRepository) CreateIfAbsent(ctx context.Context, student *domain.StudentProfile) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.provisionErr[student.UserID]; err != nil {
		return false, err
	}
	if existing, ok := m.s.students[student.UserID]; ok {
		*student = *existing
		return false, nil
	}
	for _, other := range m.s.students {
		if other.RegistrationNumber == student.RegistrationNumber {
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "registration number in use", student.RegistrationNumber)
		}
	}
	student.ID = m.s.nextDomainID
	m.s.nextDomainID++
	stored := *student
	m.s.students[student.UserID] = &stored
	return true, nil
}

func (m *mockStudentRepository) GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.students[userID]; ok {
		out := *st
		return &out, nil
	}
	return nil, domain.ErrStudentProfileNotFound
}

func (m *mockStudentRepository) Update(ctx context.Context, student *domain.StudentProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored := *student
	m.s.students[student.UserID] = &stored
	return nil
}

type mockFacultyRepository struct{ s *mockStore }

func (m *mockFacultyRepository) CreateIfAbsent(ctx context.Context, faculty *domain.FacultyProfile) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.provisionErr[faculty.UserID]; err != nil {
		return false, err
	}
	if existing, ok := m.s.faculty[faculty.UserID]; ok {
		*faculty = *existing
		return false, nil
	}
	for _, other := range m.s.faculty {
		if other.EmployeeNumber == faculty.EmployeeNumber {
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "employee number in use", faculty.EmployeeNumber)
		}
	}
	faculty.ID = m.s.nextDomainID
	m.s.nextDomainID++
	stored := *faculty
	m.s.faculty[faculty.UserID] = &stored
	return true, nil
}

func (m *mockFacultyRepository) GetByUserID(ctx context.Context, userID int64) (*domain.FacultyProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if f, ok := m.s.faculty[userID]; ok {
		out := *f
		return &out, nil
	}
	return nil, domain.ErrFacultyProfileNotFound
}

func (m *mockFacultyRepository) Update(ctx context.Context, faculty *domain.FacultyProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored := *faculty
	m.s.faculty[faculty.UserID] = &stored
	return nil
}

func (m *mockFacultyRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.FacultyProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.FacultyProfile
	for _, f := range m.s.faculty {
		if f.Department == dept {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// Subjects
// =============================================================================

type mockSubjectRepository struct{ s *mockStore }

func (m *mockSubjectRepository) Upsert(ctx context.Context, subject *domain.Subject) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.subjects {
		if existing.Code == subject.Code {
			existing.Name = subject.Name
			existing.Department = subject.Department
			existing.Semester = subject.Semester
			existing.Credits = subject.Credits
			subject.ID = existing.ID
			subject.FacultyID = existing.FacultyID
			return false, nil
		}
	}
	subject.ID = m.s.nextSubjectID
	m.s.nextSubjectID++
	stored := *subject
	m.s.subjects[subject.ID] = &stored
	return true, nil
}

func (m *mockSubjectRepository) GetByID(ctx context.Context, id int64) (*domain.Subject, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sub, ok := m.s.subjects[id]; ok {
		out := *sub
		return &out, nil
	}
	return nil, domain.ErrSubjectNotFound
}

func (m *mockSubjectRepository) list(match func(*domain.Subject) bool, less func(a, b *domain.Subject) bool) []*domain.Subject {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Subject
	for _, sub := range m.s.subjects {
		if match(sub) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func bySemesterThenCode(a, b *domain.Subject) bool {
	if a.Semester != b.Semester {
		return a.Semester < b.Semester
	}
	return a.Code < b.Code
}

func (m *mockSubjectRepository) ListAll(ctx context.Context) ([]*domain.Subject, error) {
	return m.list(func(*domain.Subject) bool { return true }, bySemesterThenCode), nil
}

func (m *mockSubjectRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.Subject, error) {
	return m.list(func(sub *domain.Subject) bool {
		return sub.Department == dept || sub.Department == ""
	}, bySemesterThenCode), nil
}

func (m *mockSubjectRepository) ListUnassigned(ctx context.Context) ([]*domain.Subject, error) {
	return m.list(func(sub *domain.Subject) bool {
		return sub.Department != "" && sub.FacultyID == nil
	}, func(a, b *domain.Subject) bool { return a.Code < b.Code }), nil
}

func (m *mockSubjectRepository) AssignFaculty(ctx context.Context, subjectID, facultyID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sub, ok := m.s.subjects[subjectID]
	if !ok {
		return domain.ErrSubjectNotFound
	}
	id := facultyID
	sub.FacultyID = &id
	return nil
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	store        *mockStore
	repos        *repository.Repositories
	events       *events.RecordingPublisher
	provisioner  *Provisioner
	users        *UserService
	registration *RegistrationService
}

func newFixture() *fixture {
	store := newMockStore()
	repos := store.Repositories()
	publisher := events.NewRecordingPublisher()
	logger := zerolog.Nop()

	provisioner := NewProvisioner(repos, domain.DefaultProvisioningDefaults(), nil, publisher, logger)
	users := NewUserService(repos, provisioner, logger)
	registration := NewRegistrationService(repos, users, provisioner, nil, publisher, logger)

	return &fixture{
		store:        store,
		repos:        repos,
		events:       publisher,
		provisioner:  provisioner,
		users:        users,
		registration: registration,
	}
}

func (f *fixture) subjects() *SubjectService {
	return NewSubjectService(f.repos, lock.NewMemoryLocker(), zerolog.Nop())
}
