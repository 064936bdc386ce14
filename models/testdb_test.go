package models_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/models"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
)

var setupOnce sync.Once

// setupTestDB connects the package-wide sqlite database (no docker needed)
// and returns a context carrying a test initiator.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	setupOnce.Do(func() {
		os.Setenv("DB_DRIVER", "sqlite")
		os.Setenv("DB_DSN", "file::memory:?cache=shared")
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	})
	if config.GetDB() == nil {
		t.Fatal("db is nil after ConnectDatabaseWithRetry")
	}

	ctx := utils.SetInitiatorIdInContext(context.Background(), "tester")
	ctx = utils.SetInitiatorNameInContext(ctx, "Test")
	return ctx
}

func createTestLocation(t *testing.T, ctx context.Context) *models.Location {
	t.Helper()
	location, err := models.CreateLocation(ctx, &models.NewLocation{
		Name: "Location " + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	return location
}

func createTestUpl(t *testing.T, ctx context.Context, quantity string, locationId int) *models.Upl {
	t.Helper()
	upl, err := models.CreateUpl(ctx, &models.NewUpl{
		Quantity:   mustDecimal(t, quantity),
		LocationId: locationId,
	})
	if err != nil {
		t.Fatalf("CreateUpl: %v", err)
	}
	return upl
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// activeQuantitySum folds the given UPLs' current quantities; Merged UPLs
// contribute zero.
func activeQuantitySum(t *testing.T, ctx context.Context, ids ...string) decimal.Decimal {
	t.Helper()
	sum := decimal.Zero
	for _, id := range ids {
		upl, err := models.GetUpl(ctx, id)
		if err != nil {
			t.Fatalf("GetUpl(%s): %v", id, err)
		}
		sum = sum.Add(upl.CurrentQuantity())
	}
	return sum
}

func historyLen(t *testing.T, ctx context.Context, uplId string) int {
	t.Helper()
	events, err := models.GetUplHistory(ctx, uplId)
	if err != nil {
		t.Fatalf("GetUplHistory(%s): %v", uplId, err)
	}
	return len(events)
}
