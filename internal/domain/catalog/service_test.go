package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockStatusRepo struct {
	store map[uuid.UUID]*Status
	refs  map[uuid.UUID]int
}

func newMockStatusRepo() *mockStatusRepo {
	return &mockStatusRepo{store: make(map[uuid.UUID]*Status), refs: make(map[uuid.UUID]int)}
}
func (m *mockStatusRepo) Create(_ context.Context, st *Status) error {
	st.ID = uuid.New(); st.CreatedAt = time.Now(); st.UpdatedAt = st.CreatedAt; m.store[st.ID] = st; return nil
}
func (m *mockStatusRepo) GetByID(_ context.Context, id uuid.UUID) (*Status, error) {
	st, ok := m.store[id]; if !ok { return nil, ErrNotFound }; return st, nil
}
func (m *mockStatusRepo) List(_ context.Context) ([]*Status, error) {
	var r []*Status; for _, st := range m.store { r = append(r, st) }; return r, nil
}
func (m *mockStatusRepo) Update(_ context.Context, st *Status) error {
	if _, ok := m.store[st.ID]; !ok { return ErrNotFound }; m.store[st.ID] = st; return nil
}
func (m *mockStatusRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok { return ErrNotFound }; delete(m.store, id); return nil
}
func (m *mockStatusRepo) ReferenceCount(_ context.Context, id uuid.UUID) (int, error) {
	return m.refs[id], nil
}

type mockTransitionRepo struct{ store map[uuid.UUID]*Transition }

func newMockTransitionRepo() *mockTransitionRepo {
	return &mockTransitionRepo{store: make(map[uuid.UUID]*Transition)}
}
func (m *mockTransitionRepo) Create(_ context.Context, t *Transition) error {
	for _, e := range m.store {
		if e.FromStatusID == t.FromStatusID && e.ToStatusID == t.ToStatusID { return ErrDuplicateTransition }
	}
	t.ID = uuid.New(); t.CreatedAt = time.Now(); m.store[t.ID] = t; return nil
}
func (m *mockTransitionRepo) GetByID(_ context.Context, id uuid.UUID) (*Transition, error) {
	t, ok := m.store[id]; if !ok { return nil, ErrNotFound }; return t, nil
}
func (m *mockTransitionRepo) List(_ context.Context) ([]*Transition, error) {
	var r []*Transition; for _, t := range m.store { r = append(r, t) }; return r, nil
}
func (m *mockTransitionRepo) ListFrom(_ context.Context, from uuid.UUID) ([]*Transition, error) {
	var r []*Transition; for _, t := range m.store { if t.FromStatusID == from { r = append(r, t) } }; return r, nil
}
func (m *mockTransitionRepo) Find(_ context.Context, from, to uuid.UUID) (*Transition, error) {
	for _, t := range m.store { if t.FromStatusID == from && t.ToStatusID == to { return t, nil } }
	return nil, ErrNotFound
}
func (m *mockTransitionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok { return ErrNotFound }; delete(m.store, id); return nil
}

func newTestService() (*Service, *mockStatusRepo, *mockTransitionRepo) {
	statuses := newMockStatusRepo()
	transitions := newMockTransitionRepo()
	return NewService(statuses, transitions), statuses, transitions
}

func mustStatus(t *testing.T, svc *Service, name string) *Status {
	t.Helper()
	st := &Status{Name: name}
	if err := svc.CreateStatus(context.Background(), st); err != nil {
		t.Fatalf("create status %q: %v", name, err)
	}
	return st
}

func TestCreateStatus_Success(t *testing.T) {
	svc, _, _ := newTestService()
	st := &Status{Name: "Intake"}
	if err := svc.CreateStatus(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
}

func TestCreateStatus_MissingName(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.CreateStatus(context.Background(), &Status{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteStatus_Unreferenced(t *testing.T) {
	svc, statuses, _ := newTestService()
	st := mustStatus(t, svc, "Intake")
	if err := svc.DeleteStatus(context.Background(), st.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := statuses.store[st.ID]; ok {
		t.Error("status should be deleted")
	}
}

func TestDeleteStatus_InUse(t *testing.T) {
	svc, statuses, _ := newTestService()
	st := mustStatus(t, svc, "Intake")
	statuses.refs[st.ID] = 3
	err := svc.DeleteStatus(context.Background(), st.ID)
	if !errors.Is(err, ErrStatusInUse) {
		t.Fatalf("expected ErrStatusInUse, got %v", err)
	}
	if _, ok := statuses.store[st.ID]; !ok {
		t.Error("status should survive a rejected delete")
	}
}

func TestCreateTransition_Success(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	b := mustStatus(t, svc, "Lab Pending")
	tr := &Transition{FromStatusID: a.ID, ToStatusID: b.ID}
	if err := svc.CreateTransition(context.Background(), tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
}

func TestCreateTransition_SelfLoop(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	if err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: a.ID, ToStatusID: a.ID}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateTransition_UnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: a.ID, ToStatusID: uuid.New()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTransition_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	b := mustStatus(t, svc, "Lab Pending")
	if err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: a.ID, ToStatusID: b.ID}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: a.ID, ToStatusID: b.ID})
	if !errors.Is(err, ErrDuplicateTransition) {
		t.Fatalf("expected ErrDuplicateTransition, got %v", err)
	}
}

func TestLegalTransition_OpenGraph(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	b := mustStatus(t, svc, "Discharged")
	ok, rule, err := svc.LegalTransition(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("a status without outgoing edges should accept any target")
	}
	if rule != nil {
		t.Error("open-graph move should carry no rule")
	}
}

func TestLegalTransition_ExplicitEdge(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	b := mustStatus(t, svc, "Lab Pending")
	c := mustStatus(t, svc, "Discharged")
	tr := &Transition{FromStatusID: a.ID, ToStatusID: b.ID, RequiresApproval: true}
	if err := svc.CreateTransition(context.Background(), tr); err != nil {
		t.Fatalf("create transition: %v", err)
	}

	ok, rule, err := svc.LegalTransition(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || rule == nil {
		t.Fatal("configured edge should be legal and return its rule")
	}
	if !rule.RequiresApproval {
		t.Error("rule should carry the approval flag")
	}

	ok, rule, err = svc.LegalTransition(context.Background(), a.ID, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || rule != nil {
		t.Error("a status with edges rejects targets they do not name")
	}
}

func TestListTransitionsFrom(t *testing.T) {
	svc, _, _ := newTestService()
	a := mustStatus(t, svc, "Intake")
	b := mustStatus(t, svc, "Lab Pending")
	c := mustStatus(t, svc, "Diagnosed")
	for _, to := range []uuid.UUID{b.ID, c.ID} {
		if err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: a.ID, ToStatusID: to}); err != nil {
			t.Fatalf("create transition: %v", err)
		}
	}
	if err := svc.CreateTransition(context.Background(), &Transition{FromStatusID: b.ID, ToStatusID: c.ID}); err != nil {
		t.Fatalf("create transition: %v", err)
	}
	edges, err := svc.ListTransitionsFrom(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("expected 2 edges from Intake, got %d", len(edges))
	}
}
