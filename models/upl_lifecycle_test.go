package models_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/upl_backend/models"
	"github.com/mmdatafocus/upl_backend/utils"
)

func TestCreateUplRejectsNonPositiveQuantity(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)

	for _, quantity := range []string{"0", "-1"} {
		_, err := models.CreateUpl(ctx, &models.NewUpl{
			Quantity:   mustDecimal(t, quantity),
			LocationId: location.ID,
		})
		if !errors.Is(err, utils.ErrorInvalidQuantity) {
			t.Fatalf("quantity %s: want ErrorInvalidQuantity, got %v", quantity, err)
		}
	}
}

func TestCreateUplRejectsDuplicateId(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "10", location.ID)

	_, err := models.CreateUpl(ctx, &models.NewUpl{
		UplId:      upl.ID,
		Quantity:   mustDecimal(t, "5"),
		LocationId: location.ID,
	})
	if !errors.Is(err, utils.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestCreateUplRejectsUnknownLocation(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CreateUpl(ctx, &models.NewUpl{
		Quantity:   mustDecimal(t, "5"),
		LocationId: 99999999,
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("want ErrorRecordNotFound, got %v", err)
	}
}

func TestDivideConservesQuantity(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "100", location.ID)

	source, target, err := models.DivideUplCommand(ctx, upl.ID, &models.DivideUpl{
		TargetQuantity: mustDecimal(t, "30"),
	})
	if err != nil {
		t.Fatalf("DivideUplCommand: %v", err)
	}
	if !source.Quantity.Equal(mustDecimal(t, "70")) {
		t.Fatalf("source quantity: want 70, got %s", source.Quantity)
	}
	if !target.Quantity.Equal(mustDecimal(t, "30")) {
		t.Fatalf("target quantity: want 30, got %s", target.Quantity)
	}
	if target.ParentId == nil || *target.ParentId != source.ID {
		t.Fatalf("target parent: want %s, got %v", source.ID, target.ParentId)
	}
	if target.LocationId != location.ID {
		t.Fatalf("target location: want %d, got %d", location.ID, target.LocationId)
	}
	if target.Unit != source.Unit {
		t.Fatalf("target unit: want %s, got %s", source.Unit, target.Unit)
	}

	// Divide the child again; the family total stays 100.
	_, grandchild, err := models.DivideUplCommand(ctx, target.ID, &models.DivideUpl{
		TargetQuantity: mustDecimal(t, "12.5"),
	})
	if err != nil {
		t.Fatalf("second divide: %v", err)
	}
	sum := activeQuantitySum(t, ctx, source.ID, target.ID, grandchild.ID)
	if !sum.Equal(mustDecimal(t, "100")) {
		t.Fatalf("family total: want 100, got %s", sum)
	}
}

func TestDivideRejectsBadSplitAndLeavesStateUnchanged(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "100", location.ID)
	eventsBefore := historyLen(t, ctx, upl.ID)

	for _, quantity := range []string{"0", "-5", "100", "150"} {
		_, _, err := models.DivideUplCommand(ctx, upl.ID, &models.DivideUpl{
			TargetQuantity: mustDecimal(t, quantity),
		})
		if !errors.Is(err, utils.ErrorInvalidSplit) {
			t.Fatalf("divide by %s: want ErrorInvalidSplit, got %v", quantity, err)
		}
	}

	after, err := models.GetUpl(ctx, upl.ID)
	if err != nil {
		t.Fatalf("GetUpl: %v", err)
	}
	if !after.Quantity.Equal(mustDecimal(t, "100")) {
		t.Fatalf("source mutated by rejected divide: %s", after.Quantity)
	}
	if got := historyLen(t, ctx, upl.ID); got != eventsBefore {
		t.Fatalf("ledger grew on rejected divide: before=%d after=%d", eventsBefore, got)
	}
}

func TestDivideMergeRoundTrip(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	upl := createTestUpl(t, ctx, "100", location.ID)

	source, target, err := models.DivideUplCommand(ctx, upl.ID, &models.DivideUpl{
		TargetQuantity: mustDecimal(t, "30"),
	})
	if err != nil {
		t.Fatalf("DivideUplCommand: %v", err)
	}

	to, from, err := models.MergeUplCommand(ctx, source.ID, &models.MergeUpl{FromUplId: target.ID})
	if err != nil {
		t.Fatalf("MergeUplCommand: %v", err)
	}
	if !to.Quantity.Equal(mustDecimal(t, "100")) {
		t.Fatalf("merged quantity: want 100, got %s", to.Quantity)
	}
	if from.Status != models.UplStatusMerged {
		t.Fatalf("from status: want %s, got %s", models.UplStatusMerged, from.Status)
	}
	if from.MergedIntoId == nil || *from.MergedIntoId != to.ID {
		t.Fatalf("from merged_into: want %s, got %v", to.ID, from.MergedIntoId)
	}
	// The merged-away UPL keeps its final quantity frozen but contributes
	// nothing to active stock.
	if !from.Quantity.Equal(mustDecimal(t, "30")) {
		t.Fatalf("from frozen quantity: want 30, got %s", from.Quantity)
	}
	if sum := activeQuantitySum(t, ctx, to.ID, from.ID); !sum.Equal(mustDecimal(t, "100")) {
		t.Fatalf("active total: want 100, got %s", sum)
	}
}

func TestMergeRejectsInactiveParticipants(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	a := createTestUpl(t, ctx, "10", location.ID)
	b := createTestUpl(t, ctx, "20", location.ID)
	c := createTestUpl(t, ctx, "30", location.ID)

	if _, _, err := models.MergeUplCommand(ctx, a.ID, &models.MergeUpl{FromUplId: b.ID}); err != nil {
		t.Fatalf("first merge: %v", err)
	}

	// b is Merged now; it can be neither source nor destination.
	if _, _, err := models.MergeUplCommand(ctx, c.ID, &models.MergeUpl{FromUplId: b.ID}); !errors.Is(err, utils.ErrorInvalidState) {
		t.Fatalf("merge from merged upl: want ErrorInvalidState, got %v", err)
	}
	if _, _, err := models.MergeUplCommand(ctx, b.ID, &models.MergeUpl{FromUplId: c.ID}); !errors.Is(err, utils.ErrorInvalidState) {
		t.Fatalf("merge into merged upl: want ErrorInvalidState, got %v", err)
	}

	// c untouched by the rejections.
	after, err := models.GetUpl(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetUpl: %v", err)
	}
	if !after.Quantity.Equal(mustDecimal(t, "30")) || after.Status != models.UplStatusActive {
		t.Fatalf("c mutated by rejected merge: %s %s", after.Quantity, after.Status)
	}
}

func TestMergeRejectsDifferentLocations(t *testing.T) {
	ctx := setupTestDB(t)
	locationA := createTestLocation(t, ctx)
	locationB := createTestLocation(t, ctx)
	a := createTestUpl(t, ctx, "10", locationA.ID)
	b := createTestUpl(t, ctx, "20", locationB.ID)

	_, _, err := models.MergeUplCommand(ctx, a.ID, &models.MergeUpl{FromUplId: b.ID})
	if !errors.Is(err, utils.ErrorLocationMismatch) {
		t.Fatalf("want ErrorLocationMismatch, got %v", err)
	}
}

func TestMergeRejectsSelf(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	a := createTestUpl(t, ctx, "10", location.ID)

	_, _, err := models.MergeUplCommand(ctx, a.ID, &models.MergeUpl{FromUplId: a.ID})
	if !errors.Is(err, utils.ErrorInvalidState) {
		t.Fatalf("want ErrorInvalidState, got %v", err)
	}
}

func TestDivideRejectsMergedSource(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	a := createTestUpl(t, ctx, "10", location.ID)
	b := createTestUpl(t, ctx, "20", location.ID)

	if _, _, err := models.MergeUplCommand(ctx, a.ID, &models.MergeUpl{FromUplId: b.ID}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	_, _, err := models.DivideUplCommand(ctx, b.ID, &models.DivideUpl{
		TargetQuantity: mustDecimal(t, "5"),
	})
	if !errors.Is(err, utils.ErrorInvalidState) {
		t.Fatalf("want ErrorInvalidState, got %v", err)
	}
}

func TestDivideRejectsDuplicateTargetId(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	a := createTestUpl(t, ctx, "100", location.ID)
	b := createTestUpl(t, ctx, "20", location.ID)

	_, _, err := models.DivideUplCommand(ctx, a.ID, &models.DivideUpl{
		TargetUplId:    b.ID,
		TargetQuantity: mustDecimal(t, "30"),
	})
	if !errors.Is(err, utils.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}

	// Rejected divide must not shave quantity off the source.
	after, err := models.GetUpl(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetUpl: %v", err)
	}
	if !after.Quantity.Equal(mustDecimal(t, "100")) {
		t.Fatalf("source mutated by rejected divide: %s", after.Quantity)
	}
}

func TestCreateUplsBulkSkipsFailures(t *testing.T) {
	ctx := setupTestDB(t)
	location := createTestLocation(t, ctx)
	existing := createTestUpl(t, ctx, "5", location.ID)

	ids, err := models.CreateUplsBulk(ctx, []*models.NewUpl{
		{UplId: uuid.NewString(), Quantity: mustDecimal(t, "1"), LocationId: location.ID},
		{UplId: existing.ID, Quantity: mustDecimal(t, "2"), LocationId: location.ID}, // duplicate
		{UplId: uuid.NewString(), Quantity: mustDecimal(t, "3"), LocationId: location.ID},
	})
	if err != nil {
		t.Fatalf("CreateUplsBulk: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 created ids, got %d (%v)", len(ids), ids)
	}
}
