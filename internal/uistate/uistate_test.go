package uistate

import (
	"sync"
	"testing"
)

func TestTrackerSingleOwner(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	if _, ok := tracker.Current(); ok {
		t.Fatal("new tracker should have no focus")
	}

	tracker.Open("items", 4)
	focus, ok := tracker.Current()
	if !ok || focus.List != "items" || focus.Row != 4 {
		t.Fatalf("focus = %+v, ok = %t", focus, ok)
	}

	// Opening another row steals the focus.
	tracker.Open("employees", 9)
	focus, ok = tracker.Current()
	if !ok || focus.List != "employees" || focus.Row != 9 {
		t.Fatalf("focus after steal = %+v", focus)
	}

	tracker.Close()
	if _, ok := tracker.Current(); ok {
		t.Fatal("focus should be gone after Close")
	}
}

func TestTrackerCloseIf(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tracker.Open("items", 4)

	if tracker.CloseIf("items", 5) {
		t.Fatal("CloseIf matched the wrong row")
	}
	if tracker.CloseIf("employees", 4) {
		t.Fatal("CloseIf matched the wrong list")
	}
	if _, ok := tracker.Current(); !ok {
		t.Fatal("mismatched CloseIf must keep the focus")
	}

	if !tracker.CloseIf("items", 4) {
		t.Fatal("CloseIf should close the matching row")
	}
	if _, ok := tracker.Current(); ok {
		t.Fatal("focus should be gone")
	}
	if tracker.CloseIf("items", 4) {
		t.Fatal("CloseIf on empty tracker reported a change")
	}
}

func TestTrackerRestore(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tracker.Restore(Focus{List: "formulas", Row: 2})
	focus, ok := tracker.Current()
	if !ok || focus.List != "formulas" || focus.Row != 2 {
		t.Fatalf("restored focus = %+v, ok = %t", focus, ok)
	}

	tracker.Restore(Focus{})
	if _, ok := tracker.Current(); ok {
		t.Fatal("restoring the zero focus should clear the tracker")
	}
}

func TestTrackerConcurrentOpens(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(row uint) {
			defer wg.Done()
			tracker.Open("items", row)
		}(uint(i + 1))
	}
	wg.Wait()

	focus, ok := tracker.Current()
	if !ok {
		t.Fatal("one row should remain exposed")
	}
	if focus.List != "items" || focus.Row == 0 || focus.Row > 50 {
		t.Fatalf("unexpected final focus %+v", focus)
	}
}
