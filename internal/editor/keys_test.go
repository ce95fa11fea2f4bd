package editor

import (
	"context"
	"testing"
)

// TestRouteDispatchesCommands verifies behavior for the covered scenario.
func TestRouteDispatchesCommands(t *testing.T) {
	ctx := context.Background()
	ed, store, _, _ := newTestEditor(t, "A", "B", "C")
	ed.Selection().Select(1)

	routed, err := ed.Route(ctx, KeyEvent{Key: KeyUp, Mods: ModCtrl})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Command != CommandMoveUp || !routed.Consumed {
		t.Fatalf("unexpected routing %#v", routed)
	}
	if got := store.order("sub-1"); got != "B,A,C" {
		t.Fatalf("unexpected order %q", got)
	}

	routed, err = ed.Route(ctx, KeyEvent{Key: KeyDown, Mods: ModCtrl})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Command != CommandMoveDown || !routed.Consumed {
		t.Fatalf("unexpected routing %#v", routed)
	}
	if got := store.order("sub-1"); got != "A,B,C" {
		t.Fatalf("unexpected order %q", got)
	}

	routed, err = ed.Route(ctx, KeyEvent{Key: KeySpace})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Command != CommandToggleDisabled || routed.Consumed {
		t.Fatalf("space must toggle without being consumed, got %#v", routed)
	}
	if !store.filters["sub-1"][1].Disabled {
		t.Fatal("expected B disabled")
	}
}

// TestRouteIgnoresOtherKeys verifies behavior for the covered scenario.
func TestRouteIgnoresOtherKeys(t *testing.T) {
	ctx := context.Background()
	ed, store, _, _ := newTestEditor(t, "A", "B")
	ed.Selection().Select(1)

	events := []KeyEvent{
		{Key: KeyUp},
		{Key: KeyUp, Mods: ModAlt},
		{Key: KeyUp, Mods: ModCtrl | ModAlt},
		{Key: KeySpace, Mods: ModCtrl},
		{Key: Key("x"), Mods: ModCtrl},
	}
	for _, ev := range events {
		routed, err := ed.Route(ctx, ev)
		if err != nil {
			t.Fatalf("Route(%#v) error = %v", ev, err)
		}
		if routed.Command != CommandNone || routed.Consumed {
			t.Fatalf("expected %#v to be ignored, got %#v", ev, routed)
		}
	}
	if len(store.calls) != 0 {
		t.Fatalf("expected no store calls, got %v", store.calls)
	}
}

// TestRouteSpaceRequiresEnabledColumn verifies behavior for the covered scenario.
func TestRouteSpaceRequiresEnabledColumn(t *testing.T) {
	ed, store, _, _ := newTestEditor(t, "A")
	if err := ed.ToggleColumn(ColumnEnabled); err != nil {
		t.Fatalf("ToggleColumn() error = %v", err)
	}
	routed, err := ed.Route(context.Background(), KeyEvent{Key: KeySpace})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Command != CommandNone || len(store.calls) != 0 {
		t.Fatalf("expected space ignored with hidden column, got %#v", routed)
	}
}

// TestRouteMoveConsumedEvenWhenBlocked verifies behavior for the covered scenario.
func TestRouteMoveConsumedEvenWhenBlocked(t *testing.T) {
	ed, store, _, _ := newTestEditor(t, "A", "B")
	ed.Selection().Select(0)
	routed, err := ed.Route(context.Background(), KeyEvent{Key: KeyUp, Mods: ModCtrl})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !routed.Consumed || len(store.calls) != 0 {
		t.Fatalf("expected consumed no-op, got %#v calls=%v", routed, store.calls)
	}
}

// TestAcceleratorSelection verifies behavior for the covered scenario.
func TestAcceleratorSelection(t *testing.T) {
	if AcceleratorFor("darwin") != ModMeta {
		t.Fatal("expected meta accelerator on darwin")
	}
	if AcceleratorFor("linux") != ModCtrl || AcceleratorFor("windows") != ModCtrl {
		t.Fatal("expected ctrl accelerator off darwin")
	}
	cases := map[string]Modifier{"auto": ModMeta, "": ModMeta, "ctrl": ModCtrl, "Alt": ModAlt, "cmd": ModMeta}
	for name, want := range cases {
		got, err := ParseAccelerator(name, "darwin")
		if err != nil {
			t.Fatalf("ParseAccelerator(%q) error = %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseAccelerator(%q) = %s, want %s", name, got, want)
		}
	}
	if _, err := ParseAccelerator("hyper", "linux"); err == nil {
		t.Fatal("expected unknown accelerator error")
	}
}

// TestRouteHonorsConfiguredAccelerator verifies behavior for the covered scenario.
func TestRouteHonorsConfiguredAccelerator(t *testing.T) {
	store := newFakeStore("A", "B")
	ed, err := New(Options{Store: store, Accelerator: ModMeta})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := ed.Open(ctx, "sub-1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ed.Selection().Select(1)

	if routed, _ := ed.Route(ctx, KeyEvent{Key: KeyUp, Mods: ModCtrl}); routed.Consumed {
		t.Fatal("ctrl must not move with a meta accelerator")
	}
	if routed, _ := ed.Route(ctx, KeyEvent{Key: KeyUp, Mods: ModMeta}); !routed.Consumed {
		t.Fatal("meta must move with a meta accelerator")
	}
	if got := store.order("sub-1"); got != "B,A" {
		t.Fatalf("unexpected order %q", got)
	}
}

// TestNormalizeModifiers verifies behavior for the covered scenario.
func TestNormalizeModifiers(t *testing.T) {
	if got := NormalizeModifiers(true, true, false); got != ModAlt|ModCtrl {
		t.Fatalf("unexpected mask %s", got)
	}
	if got := NormalizeModifiers(false, false, false); got != 0 || got.String() != "" {
		t.Fatalf("unexpected empty mask %q", got)
	}
	if got := (ModCtrl | ModMeta).String(); got != "ctrl+meta" {
		t.Fatalf("unexpected label %q", got)
	}
}
