package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// TestParseBindingKeys verifies key parsing behavior for configured overrides.
func TestParseBindingKeys(t *testing.T) {
	t.Run("uppercase rune includes shift alias", func(t *testing.T) {
		keys, help := parseBindingKeys("Z", "z")
		if len(keys) != 2 || keys[0] != "Z" || keys[1] != "shift+z" {
			t.Fatalf("unexpected uppercase parsed keys %#v", keys)
		}
		if help != "Z" {
			t.Fatalf("unexpected uppercase help text %q", help)
		}
	})

	t.Run("multi rune lowercases key matcher", func(t *testing.T) {
		keys, help := parseBindingKeys("Ctrl+R", "r")
		if len(keys) != 1 || keys[0] != "ctrl+r" {
			t.Fatalf("unexpected multi-rune parsed keys %#v", keys)
		}
		if help != "Ctrl+R" {
			t.Fatalf("unexpected multi-rune help text %q", help)
		}
	})

	t.Run("blank uses fallback", func(t *testing.T) {
		keys, help := parseBindingKeys("", "x")
		if len(keys) != 1 || keys[0] != "x" {
			t.Fatalf("unexpected fallback parsed keys %#v", keys)
		}
		if help != "x" {
			t.Fatalf("unexpected fallback help text %q", help)
		}
	})
}

// TestConfigureBinding verifies binding override application behavior.
func TestConfigureBinding(t *testing.T) {
	b := key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "old"))
	configureBinding(&b, "C", "y", "copy")
	keys := b.Keys()
	if len(keys) != 2 || keys[0] != "C" || keys[1] != "shift+c" {
		t.Fatalf("unexpected configured keys %#v", keys)
	}
	if b.Help().Key != "C" || b.Help().Desc != "copy" {
		t.Fatalf("unexpected configured help %#v", b.Help())
	}

	configureBinding(&b, "  ", "y", "ignored")
	if b.Help().Desc != "copy" {
		t.Fatal("blank override must keep the binding")
	}

	configureBinding(&b, "Space", "y", "ignored")
	if keys := b.Keys(); len(keys) != 2 || keys[0] != "C" || b.Help().Desc != "copy" {
		t.Fatalf("space override must keep the binding, got %#v", keys)
	}
}

// TestKeyMapApplyConfig verifies dynamic key map override behavior.
func TestKeyMapApplyConfig(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{Insert: "a", Delete: "x", Columns: "ctrl+k"})

	assertKeys := func(name string, binding key.Binding, expected ...string) {
		t.Helper()
		got := binding.Keys()
		if len(got) != len(expected) {
			t.Fatalf("%s key count mismatch got=%#v expected=%#v", name, got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("%s key mismatch got=%#v expected=%#v", name, got, expected)
			}
		}
	}

	assertKeys("insert", k.insertFilter, "a")
	assertKeys("delete", k.deleteFilters, "x")
	assertKeys("columns", k.columns, "ctrl+k")
	assertKeys("edit", k.editFilter, "enter", "e")
}

// TestKeyMapApplyAccelerator verifies move bindings follow the accelerator.
func TestKeyMapApplyAccelerator(t *testing.T) {
	k := newKeyMap()
	k.applyAccelerator(editor.ModMeta)
	if got := k.moveUp.Keys(); len(got) != 1 || got[0] != "meta+up" {
		t.Fatalf("unexpected move up keys %#v", got)
	}
	if k.moveDown.Help().Key != "meta+↓" {
		t.Fatalf("unexpected move down help %#v", k.moveDown.Help())
	}
}
