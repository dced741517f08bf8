package job

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"go.uber.org/zap"
)

// Purger deletes notices last triggered before cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// NoticeSweepJob removes stale notices nobody has listed for a while.
type NoticeSweepJob struct {
	purger Purger
	maxAge time.Duration
	now    func() time.Time
}

func NewNoticeSweepJob(purger Purger) *NoticeSweepJob {
	return &NoticeSweepJob{purger: purger, maxAge: notice.StaleAfter, now: time.Now}
}

func (j *NoticeSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.maxAge)
	receivers, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.L.Error("notice sweep failed", zap.Error(err))
		return
	}
	if receivers > 0 {
		log.L.Info("notice sweep finished", zap.Int("receivers", receivers), zap.Time("cutoff", cutoff))
	}
}
