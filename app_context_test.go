package main

import "testing"

// newTestAppContext builds an AppContext with n pre-populated single-pane
// tabs, bypassing InitApp (which needs a real /dev/dri device, TTY, and
// control socket) so the pure topology-mutation methods can be exercised
// directly.
func newTestAppContext(t *testing.T, n int) *AppContext {
	t.Helper()
	a := &AppContext{logger: newBracketLogger(discardWriter{})}
	for i := 0; i < n; i++ {
		tab, err := NewTab(800, 600, 10, 16)
		if err != nil {
			t.Fatalf("NewTab: %v", err)
		}
		a.tabs[i] = tab
		a.numTabs++
	}
	return a
}

func TestAppContext_NewTabCmd_RejectsAtCapacity(t *testing.T) {
	a := newTestAppContext(t, MaxTabs)
	defer func() {
		for i := 0; i < a.numTabs; i++ {
			a.tabs[i].Close()
		}
	}()

	if err := a.NewTabCmd(); err == nil {
		t.Fatal("expected the ninth new-tab request to be rejected")
	}
	if a.numTabs != MaxTabs {
		t.Fatalf("numTabs changed on a rejected request: got %d, want %d", a.numTabs, MaxTabs)
	}
}

func TestAppContext_NextPrevTabCmd_Cycle(t *testing.T) {
	a := newTestAppContext(t, 2)
	defer func() {
		for i := 0; i < a.numTabs; i++ {
			a.tabs[i].Close()
		}
	}()

	if a.ActiveTabIndex() != 0 {
		t.Fatalf("expected initial active tab 0, got %d", a.ActiveTabIndex())
	}
	a.NextTabCmd()
	if a.ActiveTabIndex() != 1 {
		t.Fatalf("expected active tab 1 after Next, got %d", a.ActiveTabIndex())
	}
	a.NextTabCmd()
	if a.ActiveTabIndex() != 0 {
		t.Fatalf("expected Next to wrap to 0, got %d", a.ActiveTabIndex())
	}
	a.PrevTabCmd()
	if a.ActiveTabIndex() != 1 {
		t.Fatalf("expected Prev to wrap to 1, got %d", a.ActiveTabIndex())
	}
}

func TestAppContext_HandleTabPaneExit_PicksNextActiveTab(t *testing.T) {
	a := newTestAppContext(t, 2)
	defer func() {
		for i := 0; i < a.numTabs; i++ {
			a.tabs[i].Close()
		}
	}()

	a.activeTab = 0
	a.tabs[0].panes[0].Close()
	a.HandleTabPaneExit(0, 0)

	if a.activeTab != 1 {
		t.Fatalf("expected active tab to move to the surviving tab 1, got %d", a.activeTab)
	}
	if a.ShutdownRequested() {
		t.Fatal("shutdown should not be requested while another tab is active")
	}
}

func TestAppContext_HandleTabPaneExit_RequestsShutdownWhenAllDead(t *testing.T) {
	a := newTestAppContext(t, 1)
	defer a.tabs[0].Close()

	a.tabs[0].panes[0].Close()
	a.HandleTabPaneExit(0, 0)

	if !a.ShutdownRequested() {
		t.Fatal("expected shutdown to be requested once every tab is inactive")
	}
}

func TestAppContext_DisplayActiveDefaultsFalseUntilSet(t *testing.T) {
	a := &AppContext{logger: newBracketLogger(discardWriter{})}
	if a.DisplayActive() {
		t.Fatal("expected displayActive to start false")
	}
	a.SetDisplayActive(true)
	if !a.DisplayActive() {
		t.Fatal("expected displayActive to be true after SetDisplayActive(true)")
	}
}
