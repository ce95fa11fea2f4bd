package app

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/filterdeck/internal/domain"
)

// TestSnapshotRoundTrip verifies export then import into an empty store reproduces every list.
func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sub, err := svc.EnsureDefaultSubscription(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultSubscription() error = %v", err)
	}
	for _, text := range []string{"||a.example^", "||b.example^", "||c.example^"} {
		if _, err := svc.AddFilter(ctx, AddFilterInput{SubscriptionID: sub.ID, Text: text, Position: -1}); err != nil {
			t.Fatalf("AddFilter(%q) error = %v", text, err)
		}
	}
	filters, err := svc.ListFilters(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if _, err := svc.SetFilterDisabled(ctx, filters[1].ID, true); err != nil {
		t.Fatalf("SetFilterDisabled() error = %v", err)
	}

	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion || len(snap.Subscriptions) != 1 || len(snap.Filters) != 3 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}

	restored, _ := newTestService(t)
	if err := restored.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	want := []string{"||a.example^", "||b.example^", "||c.example^"}
	if got := filterTexts(t, restored, sub.ID); !slices.Equal(got, want) {
		t.Fatalf("restored order = %v, want %v", got, want)
	}
	got, err := restored.ListFilters(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if !got[1].Disabled || got[0].Disabled {
		t.Fatalf("disabled flags not restored: %#v", got)
	}
}

// TestImportSnapshotMergesExisting verifies known filters are updated and moved ahead of local ones.
func TestImportSnapshotMergesExisting(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sub, err := svc.EnsureDefaultSubscription(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultSubscription() error = %v", err)
	}
	if _, err := svc.AddFilter(ctx, AddFilterInput{SubscriptionID: sub.ID, Text: "||local.example^", Position: -1}); err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}
	kept, err := svc.AddFilter(ctx, AddFilterInput{SubscriptionID: sub.ID, Text: "||old.example^", Position: -1})
	if err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}

	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Subscriptions: []SnapshotSubscription{{ID: sub.ID, Title: "Renamed", CreatedAt: sub.CreatedAt, UpdatedAt: now}},
		Filters: []SnapshotFilter{
			{ID: kept.ID, SubscriptionID: sub.ID, Position: 0, Text: "||new.example^", CreatedAt: now, UpdatedAt: now},
			{ID: "fresh", SubscriptionID: sub.ID, Position: 5, Text: "||fresh.example^", CreatedAt: now, UpdatedAt: now},
		},
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	want := []string{"||new.example^", "||fresh.example^", "||local.example^"}
	if got := filterTexts(t, svc, sub.ID); !slices.Equal(got, want) {
		t.Fatalf("merged order = %v, want %v", got, want)
	}
	renamed, err := svc.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if renamed.Title != "Renamed" || !renamed.Editable() {
		t.Fatalf("unexpected subscription after import %#v", renamed)
	}
}

// TestSnapshotValidate verifies rejected snapshot shapes.
func TestSnapshotValidate(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	sub := SnapshotSubscription{ID: "s1", Title: "Mine", CreatedAt: now, UpdatedAt: now}
	filter := SnapshotFilter{ID: "f1", SubscriptionID: "s1", Text: "||a.example^"}
	cases := []struct {
		name string
		snap Snapshot
		want string
	}{
		{name: "version", snap: Snapshot{Version: "other"}, want: "unsupported snapshot version"},
		{name: "missing title", snap: Snapshot{Subscriptions: []SnapshotSubscription{{ID: "s1"}}}, want: "title is required"},
		{name: "bad kind", snap: Snapshot{Subscriptions: []SnapshotSubscription{{ID: "s1", Title: "x", Kind: "mirror"}}}, want: "invalid subscription kind"},
		{name: "duplicate subscription", snap: Snapshot{Subscriptions: []SnapshotSubscription{sub, sub}}, want: "duplicate subscription id"},
		{name: "unknown subscription", snap: Snapshot{Filters: []SnapshotFilter{filter}}, want: "unknown subscription_id"},
		{name: "blank text", snap: Snapshot{Subscriptions: []SnapshotSubscription{sub}, Filters: []SnapshotFilter{{ID: "f1", SubscriptionID: "s1", Text: " "}}}, want: "invalid filter text"},
		{name: "duplicate filter", snap: Snapshot{Subscriptions: []SnapshotSubscription{sub}, Filters: []SnapshotFilter{filter, filter}}, want: "duplicate filter id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snap.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want %q", err, tc.want)
			}
		})
	}

	ok := Snapshot{Subscriptions: []SnapshotSubscription{{ID: "s1", Title: "Mine"}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if ok.Subscriptions[0].Kind != string(domain.SubscriptionKindUser) {
		t.Fatalf("kind = %q, want default user", ok.Subscriptions[0].Kind)
	}
}
