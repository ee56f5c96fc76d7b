package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// --- Mock implementations ---

// memorySecretStore is an in-memory SecretStore that enforces key validation.
type memorySecretStore struct {
	mu      sync.Mutex
	values  map[string]string
	failSet error
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{values: make(map[string]string)}
}

func (m *memorySecretStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := driven.ValidateKey(key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySecretStore) Set(_ context.Context, key, value string) error {
	if err := driven.ValidateKey(key); err != nil {
		return err
	}
	if m.failSet != nil {
		return m.failSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memorySecretStore) Delete(_ context.Context, key string) error {
	if err := driven.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type stubTokens struct {
	token string
	err   error
	calls int
}

func (s *stubTokens) AccessToken(_ context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

type mockSource struct {
	list      []model.Requirement
	listErr   error
	find      *model.Requirement
	findErr   error
	get       func(id string) (*model.Requirement, error)
	create    func(input model.RequirementInput) (*model.Requirement, error)
	update    func(id string, input model.RequirementInput) (*model.Requirement, error)
	lastToken string
}

func (m *mockSource) ListRequirements(_ context.Context, token string, _ model.RequirementQuery) ([]model.Requirement, error) {
	m.lastToken = token
	return m.list, m.listErr
}

func (m *mockSource) FindRequirement(_ context.Context, token string, _ model.RequirementQuery) (*model.Requirement, error) {
	m.lastToken = token
	return m.find, m.findErr
}

func (m *mockSource) GetRequirement(_ context.Context, _ string, id string) (*model.Requirement, error) {
	if m.get == nil {
		return nil, nil
	}
	return m.get(id)
}

func (m *mockSource) CreateRequirement(_ context.Context, token string, input model.RequirementInput) (*model.Requirement, error) {
	m.lastToken = token
	return m.create(input)
}

func (m *mockSource) UpdateRequirement(_ context.Context, token, id string, input model.RequirementInput) (*model.Requirement, error) {
	m.lastToken = token
	return m.update(id, input)
}

type storedObject struct {
	object     model.GraphObject
	properties map[string]string
}

// memoryGraph is an in-memory GraphStore. reject, when set, refuses objects
// for which it returns field errors.
type memoryGraph struct {
	mu         sync.Mutex
	objects    map[string]storedObject
	users      map[string]model.Principal
	mappings   []model.UserMapping
	reject     func(obj model.GraphObject) []model.FieldError
	upsertErr  error
	deleteErr  map[model.ObjectType]error
	userDelErr error
	calls      []string
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		objects:   make(map[string]storedObject),
		users:     make(map[string]model.Principal),
		deleteErr: make(map[model.ObjectType]error),
	}
}

func objectKey(t model.ObjectType, id string) string { return string(t) + "/" + id }

func (g *memoryGraph) UpsertObjects(_ context.Context, objects []model.GraphObject, properties map[string]string) (model.BulkResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "upsertObjects")
	if g.upsertErr != nil {
		return model.BulkResult{}, g.upsertErr
	}

	var result model.BulkResult
	for _, obj := range objects {
		key := model.EntityKey{EntityType: string(obj.ObjectType()), EntityID: obj.ID}
		if g.reject != nil {
			if errs := g.reject(obj); len(errs) > 0 {
				result.Rejected = append(result.Rejected, model.RejectedEntity{Key: key, Errors: errs})
				continue
			}
		}
		g.objects[objectKey(obj.ObjectType(), obj.ID)] = storedObject{object: obj, properties: properties}
		result.Accepted = append(result.Accepted, key)
	}
	return result, nil
}

func (g *memoryGraph) DeleteObjectsByProperties(_ context.Context, objectType model.ObjectType, properties map[string]string) (model.DeleteOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "delete:"+string(objectType))
	if err := g.deleteErr[objectType]; err != nil {
		return model.DeleteOutcome{}, err
	}

	deleted := 0
	for key, stored := range g.objects {
		if stored.object.ObjectType() != objectType || !matches(stored.properties, properties) {
			continue
		}
		delete(g.objects, key)
		deleted++
	}
	return model.DeleteOutcome{Deleted: deleted}, nil
}

func matches(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (g *memoryGraph) UpsertUsers(_ context.Context, users []model.Principal, _ map[string]string) (model.BulkResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "upsertUsers")
	var result model.BulkResult
	for _, u := range users {
		g.users[u.ExternalID] = u
		result.Accepted = append(result.Accepted, model.EntityKey{EntityID: u.ExternalID})
	}
	return result, nil
}

func (g *memoryGraph) MapUsers(_ context.Context, mappings []model.UserMapping) (model.BulkResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "mapUsers")
	var result model.BulkResult
	for _, m := range mappings {
		g.mappings = append(g.mappings, m)
		result.Accepted = append(result.Accepted, model.EntityKey{EntityID: m.ExternalID})
	}
	return result, nil
}

func (g *memoryGraph) DeleteUser(_ context.Context, externalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "deleteUser")
	if g.userDelErr != nil {
		return g.userDelErr
	}
	delete(g.users, externalID)
	return nil
}

func (g *memoryGraph) GetObject(_ context.Context, objectType model.ObjectType, externalID string) (model.GraphPayload, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.objects[objectKey(objectType, externalID)]
	if !ok {
		return nil, nil
	}
	return json.Marshal(stored.object)
}

func (g *memoryGraph) GetUser(_ context.Context, externalID string) (model.GraphPayload, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[externalID]
	if !ok {
		return nil, nil
	}
	return json.Marshal(u)
}

type stubTracker struct {
	url string
	err error
}

func (s *stubTracker) BrowseURL(_ context.Context, issueKey string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url + "/browse/" + issueKey, nil
}

var errBoom = errors.New("boom")
