package storage_test

import (
	"context"
	"testing"
	"time"

	"courtbook/internal/booking"
	"courtbook/internal/testutil"
)

func TestLoadEmptyDatabase(t *testing.T) {
	store := testutil.NewTestStore(t)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Courts) != 0 || len(snap.Reservations) != 0 || len(snap.Waitlist) != 0 {
		t.Fatalf("fresh database should be empty, got %+v", snap)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := booking.Snapshot{
		Courts: []booking.Court{
			{
				ID:           1,
				Name:         "Center Court",
				Location:     "north",
				Indoor:       true,
				PricePerHour: 42.5,
				MaxAttendees: 4,
				Description:  "main hall",
				Features:     []string{"lights", "seating"},
				TimeSlots:    []string{"09:00", "10:00"},
			},
		},
		Reservations: []booking.Reservation{
			{
				ID:           7,
				CourtID:      1,
				UserID:       3,
				StartTime:    start,
				EndTime:      start.Add(time.Hour),
				Price:        42.5,
				VIP:          true,
				FromWaitlist: true,
			},
			{
				ID:        8,
				CourtID:   1,
				UserID:    4,
				StartTime: start.Add(2 * time.Hour),
				EndTime:   start.Add(3 * time.Hour),
				Price:     42.5,
				Cancelled: true,
			},
		},
		Waitlist: []booking.WaitlistEntry{
			{UserID: 5, CourtID: 1, RequestedTime: start, VIP: false, Priority: booking.PriorityMember},
			{UserID: 6, CourtID: 1, RequestedTime: start, VIP: true, Priority: booking.PriorityVIP},
		},
	}

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded.Courts) != 1 {
		t.Fatalf("expected 1 court, got %d", len(loaded.Courts))
	}
	court := loaded.Courts[0]
	if court.Name != "Center Court" || !court.Indoor || court.PricePerHour != 42.5 {
		t.Errorf("court did not round-trip: %+v", court)
	}
	if len(court.Features) != 2 || court.Features[1] != "seating" {
		t.Errorf("features did not round-trip: %v", court.Features)
	}
	if len(court.TimeSlots) != 2 || court.TimeSlots[0] != "09:00" {
		t.Errorf("time slots did not round-trip: %v", court.TimeSlots)
	}

	if len(loaded.Reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(loaded.Reservations))
	}
	r := loaded.Reservations[0]
	if r.ID != 7 || !r.StartTime.Equal(start) || !r.VIP || !r.FromWaitlist {
		t.Errorf("reservation did not round-trip: %+v", r)
	}
	if !loaded.Reservations[1].Cancelled {
		t.Error("cancelled flag did not round-trip")
	}

	// Queue order survives reload.
	if len(loaded.Waitlist) != 2 {
		t.Fatalf("expected 2 waitlist entries, got %d", len(loaded.Waitlist))
	}
	if loaded.Waitlist[0].UserID != 5 || loaded.Waitlist[1].UserID != 6 {
		t.Errorf("waitlist order changed: %+v", loaded.Waitlist)
	}
	if loaded.Waitlist[1].Priority != booking.PriorityVIP {
		t.Errorf("priority did not round-trip: %+v", loaded.Waitlist[1])
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	first := booking.Snapshot{
		Courts: []booking.Court{{ID: 1, Name: "Old", TimeSlots: []string{"09:00"}}},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := booking.Snapshot{
		Courts: []booking.Court{{ID: 2, Name: "New", TimeSlots: []string{"10:00"}}},
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Courts) != 1 || loaded.Courts[0].Name != "New" {
		t.Fatalf("save should replace previous state, got %+v", loaded.Courts)
	}
}
