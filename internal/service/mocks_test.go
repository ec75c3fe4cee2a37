package service

import (
	"context"
	"sort"
	"time"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[string]*domain.User
	nextID    int64
	createErr error
	getErr    error
	updateErr error
	deleteErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[string]*domain.User),
		nextID: 1,
	}
}

// Add seeds a user, assigning an ID.
func (m *MockUserRepository) Add(user *domain.User) *domain.User {
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Username]; exists {
		return domain.ErrUserAlreadyExists
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, exists := m.users[username]; exists {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for username, u := range m.users {
		if u.ID == user.ID {
			delete(m.users, username)
			copied := *user
			m.users[user.Username] = &copied
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (m *MockUserRepository) Delete(ctx context.Context, username string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.users[username]; !exists {
		return domain.ErrUserNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	usernames := make([]string, 0, len(m.users))
	for username := range m.users {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	var items []*domain.User
	for _, username := range usernames {
		copied := *m.users[username]
		items = append(items, &copied)
	}
	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, exists := m.users[username]
	return exists, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *MockUserRepository) CountActiveSuperusers(ctx context.Context, excludeUsername string) (int64, error) {
	var count int64
	for _, u := range m.users {
		if u.Username != excludeUsername && u.IsActive && u.IsSuperuser {
			count++
		}
	}
	return count, nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	if u, exists := m.users[username]; exists {
		u.LastLogin = &at
		return nil
	}
	return domain.ErrUserNotFound
}

// MockGroupRepository is a mock implementation of repository.GroupRepository.
type MockGroupRepository struct {
	groups    map[string]*domain.Group
	nextID    int64
	createErr error
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups: make(map[string]*domain.Group),
		nextID: 1,
	}
}

func (m *MockGroupRepository) Add(group *domain.Group) *domain.Group {
	group.ID = m.nextID
	m.nextID++
	m.groups[group.Name] = group
	return group
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.groups[group.Name]; exists {
		return domain.ErrGroupAlreadyExists
	}
	group.ID = m.nextID
	m.nextID++
	m.groups[group.Name] = group
	return nil
}

func (m *MockGroupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	if g, exists := m.groups[name]; exists {
		copied := *g
		copied.Members = append([]string(nil), g.Members...)
		return &copied, nil
	}
	return nil, domain.ErrGroupNotFound
}

func (m *MockGroupRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Group], error) {
	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []*domain.Group
	for _, name := range names {
		copied := *m.groups[name]
		items = append(items, &copied)
	}
	return &repository.ListResult[domain.Group]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockGroupRepository) Update(ctx context.Context, group *domain.Group) error {
	for name, g := range m.groups {
		if g.ID == group.ID {
			if name != group.Name {
				if _, exists := m.groups[group.Name]; exists {
					return domain.ErrGroupAlreadyExists
				}
			}
			delete(m.groups, name)
			copied := *group
			copied.Members = append([]string(nil), group.Members...)
			m.groups[group.Name] = &copied
			return nil
		}
	}
	return domain.ErrGroupNotFound
}

func (m *MockGroupRepository) Delete(ctx context.Context, name string) error {
	if _, exists := m.groups[name]; !exists {
		return domain.ErrGroupNotFound
	}
	delete(m.groups, name)
	return nil
}

func (m *MockGroupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, exists := m.groups[name]
	return exists, nil
}

// mockTxManager runs the function directly; the mocks have no transactions.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// plainHasher is a transparent Hasher for tests.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (plainHasher) Compare(plain, hash string) error {
	if "hashed:"+plain != hash {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// Interface checks.
var (
	_ repository.UserRepository  = (*MockUserRepository)(nil)
	_ repository.GroupRepository = (*MockGroupRepository)(nil)
	_ repository.TxManager       = mockTxManager{}
	_ domain.Hasher              = plainHasher{}
)
