package session

import (
	"sync"
	"testing"
	"time"

	"medical-assistant-be/internal/repository/memory"
	"medical-assistant-be/pkg/store"
)

func newTestManager() *Manager {
	return NewManager(memory.NewSessionRepository(time.Hour))
}

func TestLoadOrCreateReturnsEmptyDefaults(t *testing.T) {
	m := newTestManager()

	state := m.LoadOrCreate("s1")

	if state.ID != "s1" {
		t.Errorf("expected session id s1, got %q", state.ID)
	}
	if len(state.Messages) != 0 || len(state.Symptoms) != 0 {
		t.Errorf("fresh state must be empty, got %+v", state)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	m := newTestManager()

	state := m.LoadOrCreate("s1")
	state.AppendTurn(store.RoleUser, "I have a headache")
	m.Save(state)

	again := m.LoadOrCreate("s1")
	if len(again.Messages) != 1 {
		t.Fatalf("expected saved state to survive reload, got %+v", again)
	}
}

func TestClearResetsToDefaults(t *testing.T) {
	m := newTestManager()

	state := m.LoadOrCreate("s1")
	state.Symptoms = []string{"fever"}
	m.Save(state)

	m.Clear("s1")

	fresh := m.LoadOrCreate("s1")
	if len(fresh.Symptoms) != 0 {
		t.Errorf("cleared session must start empty, got %v", fresh.Symptoms)
	}
}

func TestClearWaitsForInFlightTurn(t *testing.T) {
	m := newTestManager()

	unlock := m.Lock("s1")
	state := m.LoadOrCreate("s1")
	state.AppendTurn(store.RoleUser, "I have a headache")

	cleared := make(chan struct{})
	go func() {
		m.Clear("s1")
		close(cleared)
	}()

	select {
	case <-cleared:
		t.Fatal("Clear must wait for the in-flight turn to release the session lock")
	case <-time.After(20 * time.Millisecond):
	}

	m.Save(state)
	unlock()

	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("Clear never completed after the turn finished")
	}

	unlockAgain := m.Lock("s1")
	defer unlockAgain()
	fresh := m.LoadOrCreate("s1")
	if len(fresh.Messages) != 0 {
		t.Errorf("state saved by the in-flight turn must not survive a clear, got %d messages", len(fresh.Messages))
	}
}

func TestLockSerializesSameSession(t *testing.T) {
	m := newTestManager()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("s1")
			defer unlock()

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one in-flight turn per session, saw %d", maxSeen)
	}
}

func TestLockIndependentAcrossSessions(t *testing.T) {
	m := newTestManager()

	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking session b must not block on session a")
	}
}
