package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/upl_backend/config"
	"github.com/shopspring/decimal"
)

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	// Remove any whitespace and check for empty strings
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

/* Per-UPL serialization */

// uplMutexes holds one mutex per UPL id. Entries are never evicted; the
// set of UPLs a single process touches between restarts is bounded in
// practice (warehouse scale, not web scale).
var uplMutexes sync.Map

func uplMutex(uplId string) *sync.Mutex {
	v, _ := uplMutexes.LoadOrStore(uplId, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// LockUpls serializes mutating operations on the given UPL ids and returns
// a release function. At most one in-flight mutation per UPL id at a time;
// operations touching two UPLs (merge) acquire both locks in ascending id
// order so two overlapping merges cannot deadlock.
//
// Redis lock is a best-effort optimization for multi-process deployments.
// Correctness must not depend on Redis: in-process mutexes serialize the
// single authoritative process, and the optimistic version check on the
// UPL row catches anything that slips past.
func LockUpls(ctx context.Context, moduleName string, functionName string, uplIds ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		// Caller cancelled before any lock was taken: no side effects.
		return nil, err
	}

	ids := make([]string, 0, len(uplIds))
	seen := make(map[string]bool, len(uplIds))
	for _, id := range uplIds {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		uplMutex(id).Lock()
	}

	redisLocks, err := obtainRedisLocks(ctx, moduleName, functionName, ids)
	if err != nil {
		for i := len(ids) - 1; i >= 0; i-- {
			uplMutex(ids[i]).Unlock()
		}
		return nil, err
	}

	release := func() {
		for _, l := range redisLocks {
			_ = l.Release(context.Background())
		}
		for i := len(ids) - 1; i >= 0; i-- {
			uplMutex(ids[i]).Unlock()
		}
	}
	return release, nil
}

func obtainRedisLocks(ctx context.Context, moduleName string, functionName string, uplIds []string) ([]*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis not configured (tests, single-node deployments).
		return nil, nil
	}

	logger := config.GetLogger()
	locks := make([]*redislock.Lock, 0, len(uplIds))
	for _, id := range uplIds {
		lockKey := fmt.Sprintf("uplLock:%s", id)
		lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			config.LogError(logger, moduleName, functionName, "Could not obtain lock for UPL", id, err)
			for _, l := range locks {
				_ = l.Release(ctx)
			}
			return nil, errors.New("could not obtain lock for upl " + id)
		} else if err != nil {
			config.LogError(logger, moduleName, functionName, "Error obtaining lock for UPL", id, err)
			for _, l := range locks {
				_ = l.Release(ctx)
			}
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, nil
}
