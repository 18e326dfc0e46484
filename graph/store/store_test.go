package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testStoreContract runs the behaviour every Store implementation must share.
// newStore must return an empty store.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("put assigns id and timestamp", func(t *testing.T) {
		st := newStore(t)
		rec, err := st.Put(ctx, Record{Topic: "passport", Summary: "valid until 2031", Tags: []string{" ID ", "id", "travel"}})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if rec.ID == "" || rec.CreatedAt.IsZero() {
			t.Errorf("generated fields not set: %+v", rec)
		}
		if len(rec.Tags) != 2 || rec.Tags[0] != "id" || rec.Tags[1] != "travel" {
			t.Errorf("tags not normalized: %v", rec.Tags)
		}
	})

	t.Run("get round trip", func(t *testing.T) {
		st := newStore(t)
		in := Record{
			ID:        "rec-1",
			Topic:     "application",
			Summary:   "visa application for J. Doe",
			KeyPoints: []string{"passport ok", "photo missing"},
			Tags:      []string{"visa"},
			CreatedAt: base,
		}
		if _, err := st.Put(ctx, in); err != nil {
			t.Fatal(err)
		}

		got, err := st.Get(ctx, "rec-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Topic != in.Topic || got.Summary != in.Summary {
			t.Errorf("got %+v", got)
		}
		if len(got.KeyPoints) != 2 || got.KeyPoints[1] != "photo missing" {
			t.Errorf("KeyPoints = %v", got.KeyPoints)
		}
		if d := got.CreatedAt.Sub(base); d < -time.Millisecond || d > time.Millisecond {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put replaces existing id", func(t *testing.T) {
		st := newStore(t)
		_, _ = st.Put(ctx, Record{ID: "r", Topic: "old", Tags: []string{"a"}, CreatedAt: base})
		_, err := st.Put(ctx, Record{ID: "r", Topic: "new", Tags: []string{"b"}, CreatedAt: base})
		if err != nil {
			t.Fatal(err)
		}

		got, _ := st.Get(ctx, "r")
		if got.Topic != "new" {
			t.Errorf("Topic = %q, want new", got.Topic)
		}
		if old, _ := st.FindByTag(ctx, "a"); len(old) != 0 {
			t.Errorf("stale tag still indexed: %v", old)
		}
		if all, _ := st.List(ctx, 0); len(all) != 1 {
			t.Errorf("List() has %d records, want 1", len(all))
		}
	})

	t.Run("find by tag newest first", func(t *testing.T) {
		st := newStore(t)
		for i, tags := range [][]string{{"visa"}, {"visa", "urgent"}, {"tax"}} {
			_, err := st.Put(ctx, Record{
				ID:        string(rune('a' + i)),
				Topic:     "t",
				Tags:      tags,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatal(err)
			}
		}

		visa, err := st.FindByTag(ctx, "VISA")
		if err != nil {
			t.Fatal(err)
		}
		if len(visa) != 2 || visa[0].ID != "b" || visa[1].ID != "a" {
			t.Errorf("FindByTag(visa) = %v", ids(visa))
		}
		none, err := st.FindByTag(ctx, "unknown")
		if err != nil || none == nil || len(none) != 0 {
			t.Errorf("FindByTag(unknown) = %v, %v", none, err)
		}
	})

	t.Run("list with limit", func(t *testing.T) {
		st := newStore(t)
		for i := 0; i < 5; i++ {
			_, _ = st.Put(ctx, Record{Topic: "t", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		}

		all, err := st.List(ctx, 0)
		if err != nil || len(all) != 5 {
			t.Fatalf("List(0) = %d records, %v", len(all), err)
		}
		for i := 1; i < len(all); i++ {
			if all[i].CreatedAt.After(all[i-1].CreatedAt) {
				t.Errorf("List not newest first at %d", i)
			}
		}
		two, _ := st.List(ctx, 2)
		if len(two) != 2 || two[0].ID != all[0].ID {
			t.Errorf("List(2) = %v", ids(two))
		}
	})
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{"Visa", " visa", "", "  ", "Tax"})
	if len(got) != 2 || got[0] != "visa" || got[1] != "tax" {
		t.Errorf("normalizeTags = %v", got)
	}
}

func TestPrepare(t *testing.T) {
	rec := prepare(Record{ID: "keep", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))})
	if rec.ID != "keep" || rec.CreatedAt.Location() != time.UTC || rec.KeyPoints == nil {
		t.Errorf("prepare = %+v", rec)
	}
}
