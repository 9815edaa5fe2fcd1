package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// VerificationPurgeJob drops verification records that can no longer be
// consumed. Nothing depends on it for correctness; expiry is checked on read.
type VerificationPurgeJob struct {
	purger expiredPurger
}

func NewVerificationPurgeJob(purger expiredPurger) *VerificationPurgeJob {
	return &VerificationPurgeJob{purger: purger}
}

func (j *VerificationPurgeJob) Name() string {
	return "verification_purge"
}

func (j *VerificationPurgeJob) Run(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired verification records removed", zap.Int64("count", n))
	}
	return nil
}
