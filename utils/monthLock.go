package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"github.com/bsm/redislock"
)

var ErrMonthLocked = errors.New("another workflow step is running for this month")

const monthLockTTL = 10 * time.Minute

// MonthLock obtains the per-month step lock. The returned release func is never nil.
// Without Redis the lock is a no-op; the single-operator deployment does not need it.
func MonthLock(ctx context.Context, monthId int, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("MonthStep:%d", monthId)
	lock, err := locker.Obtain(ctx, lockKey, monthLockTTL, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for month", monthId, err)
		return func() {}, ErrMonthLocked
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for month", monthId, err)
		return func() {}, err
	}

	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
