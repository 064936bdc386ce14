package models_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/mmdatafocus/upl_backend/models"
	"github.com/mmdatafocus/upl_backend/utils"
)

func TestMoveUpdatesLocationAndLedger(t *testing.T) {
	ctx := setupTestDB(t)
	locationA := createTestLocation(t, ctx)
	locationB := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", locationA.ID)
	eventsBefore := historyLen(t, ctx, upl.ID)

	moved, err := models.MoveUplCommand(ctx, upl.ID, &models.MoveUpl{
		LocationFrom: locationA.ID,
		LocationTo:   locationB.ID,
	})
	if err != nil {
		t.Fatalf("MoveUplCommand: %v", err)
	}
	if moved.LocationId != locationB.ID {
		t.Fatalf("location: want %d, got %d", locationB.ID, moved.LocationId)
	}

	locationId, err := models.GetUplLocation(ctx, upl.ID)
	if err != nil {
		t.Fatalf("GetUplLocation: %v", err)
	}
	if locationId != locationB.ID {
		t.Fatalf("GetUplLocation: want %d, got %d", locationB.ID, locationId)
	}
	if got := historyLen(t, ctx, upl.ID); got != eventsBefore+1 {
		t.Fatalf("ledger: want %d events, got %d", eventsBefore+1, got)
	}
}

func TestMoveRejectsNoOp(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", location.ID)

	_, err := models.MoveUplCommand(ctx, upl.ID, &models.MoveUpl{
		LocationFrom: location.ID,
		LocationTo:   location.ID,
	})
	if !errors.Is(err, utils.ErrorNoOpMove) {
		t.Fatalf("want ErrorNoOpMove, got %v", err)
	}
}

func TestMoveRejectsStaleSource(t *testing.T) {
	ctx := setupTestDB(t)
	locationA := createTestLocation(t, ctx)
	locationB := createTestLocation(t, ctx)
	locationC := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", locationA.ID)

	// Claiming the UPL is at B when it sits at A must fail without moving it.
	_, err := models.MoveUplCommand(ctx, upl.ID, &models.MoveUpl{
		LocationFrom: locationB.ID,
		LocationTo:   locationC.ID,
	})
	if !errors.Is(err, utils.ErrorLocationConflict) {
		t.Fatalf("want ErrorLocationConflict, got %v", err)
	}
	locationId, err := models.GetUplLocation(ctx, upl.ID)
	if err != nil {
		t.Fatalf("GetUplLocation: %v", err)
	}
	if locationId != locationA.ID {
		t.Fatalf("upl moved by rejected command: %d", locationId)
	}
}

func TestMoveRejectsUnknownDestination(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", location.ID)

	_, err := models.MoveUplCommand(ctx, upl.ID, &models.MoveUpl{
		LocationFrom: location.ID,
		LocationTo:   99999999,
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("want ErrorRecordNotFound, got %v", err)
	}
}

// Two clerks scan the same pallet at the same time, both believing it is
// still at A. Exactly one wins; the other gets a location conflict.
func TestConcurrentStaleMovesExactlyOneWins(t *testing.T) {
	ctx := setupTestDB(t)
	locationA := createTestLocation(t, ctx)
	locationB := createTestLocation(t, ctx)
	locationC := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", locationA.ID)

	destinations := []int{locationB.ID, locationC.ID}
	results := make([]error, len(destinations))
	var wg sync.WaitGroup
	for i, destination := range destinations {
		wg.Add(1)
		go func(i, destination int) {
			defer wg.Done()
			_, err := models.MoveUplCommand(ctx, upl.ID, &models.MoveUpl{
				LocationFrom: locationA.ID,
				LocationTo:   destination,
			})
			results[i] = err
		}(i, destination)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, utils.ErrorLocationConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("want exactly one winner, got wins=%d conflicts=%d", wins, conflicts)
	}

	// Final location is whichever destination won; the ledger carries
	// exactly one Moved event.
	locationId, err := models.GetUplLocation(ctx, upl.ID)
	if err != nil {
		t.Fatalf("GetUplLocation: %v", err)
	}
	if locationId != locationB.ID && locationId != locationC.ID {
		t.Fatalf("unexpected final location %d", locationId)
	}
	events, err := models.GetUplHistory(ctx, upl.ID)
	if err != nil {
		t.Fatalf("GetUplHistory: %v", err)
	}
	var moves int
	for _, event := range events {
		if event.EventType == models.UplEventMoved {
			moves++
		}
	}
	if moves != 1 {
		t.Fatalf("want exactly one Moved event, got %d", moves)
	}
}
