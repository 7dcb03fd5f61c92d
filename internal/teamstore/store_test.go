package teamstore

import (
	"testing"
)

func TestStore_AssignTaskRespectsDependencies(t *testing.T) {
	s, err := Open(t.TempDir(), "alpha")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = s.WithTasks(func(tasks []Task) ([]Task, error) {
		return []Task{
			{ID: "t1", Subject: "design", Status: TaskPending},
			{ID: "t2", Subject: "implement", Status: TaskPending, BlockedBy: []string{"t1"}},
		}, nil
	})
	if err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	if err := s.AssignTask("t2", "bob"); err == nil {
		t.Fatal("expected assignment to fail while dependency t1 is incomplete")
	}

	err = s.WithTasks(func(tasks []Task) ([]Task, error) {
		for i := range tasks {
			if tasks[i].ID == "t1" {
				tasks[i].Status = TaskCompleted
			}
		}
		return tasks, nil
	})
	if err != nil {
		t.Fatalf("complete t1: %v", err)
	}

	if err := s.AssignTask("t2", "bob"); err != nil {
		t.Fatalf("expected assignment to succeed once t1 completed: %v", err)
	}
}

func TestStore_RemoveTeammateBlockedByActiveTask(t *testing.T) {
	s, err := Open(t.TempDir(), "alpha")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.writeConfig(TeamConfig{Name: "alpha", Teammates: []string{"bob"}}); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err = s.WithTasks(func(tasks []Task) ([]Task, error) {
		return []Task{{ID: "t1", Status: TaskActive, Owner: "bob"}}, nil
	})
	if err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	if err := s.RemoveTeammate("bob"); err == nil {
		t.Fatal("expected removal to fail while bob holds an active task")
	}

	err = s.WithTasks(func(tasks []Task) ([]Task, error) {
		tasks[0].Status = TaskCompleted
		return tasks, nil
	})
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}

	if err := s.RemoveTeammate("bob"); err != nil {
		t.Fatalf("expected removal to succeed once task completed: %v", err)
	}
}

func TestStore_MailboxResumesFromOffset(t *testing.T) {
	s, err := Open(t.TempDir(), "alpha")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Send("carol", Mailbox{From: "bob", To: "carol", Body: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	first, err := s.ReadNew("carol")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(first) != 1 || first[0].Body != "hi" {
		t.Fatalf("expected one message 'hi', got %+v", first)
	}

	second, err := s.ReadNew("carol")
	if err != nil {
		t.Fatalf("read again: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no new messages on second read, got %+v", second)
	}

	if err := s.Send("carol", Mailbox{From: "bob", To: "carol", Body: "again"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	third, err := s.ReadNew("carol")
	if err != nil {
		t.Fatalf("read third: %v", err)
	}
	if len(third) != 1 || third[0].Body != "again" {
		t.Fatalf("expected one new message 'again', got %+v", third)
	}
}
