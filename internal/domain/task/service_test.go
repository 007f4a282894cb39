package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockTaskRepo struct {
	store map[uuid.UUID]*Task
}

func newMockTaskRepo() *mockTaskRepo { return &mockTaskRepo{store: make(map[uuid.UUID]*Task)} }

func (m *mockTaskRepo) Create(_ context.Context, t *Task) error {
	t.ID = uuid.New(); t.CreatedAt = time.Now(); t.UpdatedAt = t.CreatedAt; m.store[t.ID] = t; return nil
}
func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	t, ok := m.store[id]; if !ok { return nil, ErrNotFound }; return t, nil
}
func (m *mockTaskRepo) List(_ context.Context, pid uuid.UUID, f Filter, limit, offset int) ([]*Task, int, error) {
	var r []*Task
	for _, t := range m.store {
		if t.PatientID != pid { continue }
		if f.StatusID != nil && t.StatusID != *f.StatusID { continue }
		if f.Completed != nil && t.Completed != *f.Completed { continue }
		r = append(r, t)
	}
	return r, len(r), nil
}
func (m *mockTaskRepo) ListOpenIDs(_ context.Context, pid, sid uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, t := range m.store {
		if t.PatientID == pid && t.StatusID == sid && !t.Completed { ids = append(ids, t.ID) }
	}
	return ids, nil
}
func (m *mockTaskRepo) Complete(_ context.Context, id uuid.UUID, actorID string) (*Task, error) {
	t, ok := m.store[id]
	if !ok { return nil, ErrNotFound }
	if t.Completed { return nil, ErrAlreadyCompleted }
	now := time.Now()
	t.Completed = true; t.CompletedAt = &now; t.CompletedBy = &actorID; t.UpdatedAt = now
	return t, nil
}
func (m *mockTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok { return ErrNotFound }; delete(m.store, id); return nil
}

func newTestService() (*Service, *mockTaskRepo) {
	repo := newMockTaskRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreate_Success(t *testing.T) {
	svc, _ := newTestService()
	task := &Task{PatientID: uuid.New(), StatusID: uuid.New(), Title: "Collect blood sample"}
	if err := svc.Create(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
	if task.Completed {
		t.Error("new task should be open")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name string
		task *Task
	}{
		{"missing title", &Task{PatientID: uuid.New(), StatusID: uuid.New()}},
		{"missing patient", &Task{StatusID: uuid.New(), Title: "x"}},
		{"missing status", &Task{PatientID: uuid.New(), Title: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), tc.task); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestComplete_OneWay(t *testing.T) {
	svc, _ := newTestService()
	task := &Task{PatientID: uuid.New(), StatusID: uuid.New(), Title: "Review labs"}
	if err := svc.Create(context.Background(), task); err != nil {
		t.Fatalf("create: %v", err)
	}

	done, err := svc.Complete(context.Background(), task.ID, "dr-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil || done.CompletedBy == nil || *done.CompletedBy != "dr-a" {
		t.Error("completion should stamp the actor and time")
	}

	if _, err := svc.Complete(context.Background(), task.ID, "dr-b"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	reloaded, _ := svc.Get(context.Background(), task.ID)
	if *reloaded.CompletedBy != "dr-a" {
		t.Error("a rejected completion must not overwrite the original")
	}
}

func TestComplete_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Complete(context.Background(), uuid.New(), "dr-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOpenIDs_ScopedToStatus(t *testing.T) {
	svc, _ := newTestService()
	patientID := uuid.New()
	statusA := uuid.New()
	statusB := uuid.New()

	open := &Task{PatientID: patientID, StatusID: statusA, Title: "a"}
	other := &Task{PatientID: patientID, StatusID: statusB, Title: "b"}
	done := &Task{PatientID: patientID, StatusID: statusA, Title: "c"}
	for _, task := range []*Task{open, other, done} {
		if err := svc.Create(context.Background(), task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.Complete(context.Background(), done.ID, "dr-a"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	ids, err := svc.ListOpenIDs(context.Background(), patientID, statusA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != open.ID {
		t.Errorf("expected only the open task under status A, got %v", ids)
	}
}

func TestList_Filters(t *testing.T) {
	svc, _ := newTestService()
	patientID := uuid.New()
	statusID := uuid.New()
	a := &Task{PatientID: patientID, StatusID: statusID, Title: "a"}
	b := &Task{PatientID: patientID, StatusID: uuid.New(), Title: "b"}
	for _, task := range []*Task{a, b} {
		if err := svc.Create(context.Background(), task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, total, err := svc.List(context.Background(), patientID, Filter{StatusID: &statusID}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("expected only the task under the filtered status, got %d", total)
	}
}
