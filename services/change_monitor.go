package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/models"
	"github.com/yeremiapane/forms-api/utils"
)

// SubmissionSource is the part of the store the monitor reads.
type SubmissionSource interface {
	SubmissionsAfter(ctx context.Context, afterID uint64, limit int) ([]models.Submission, error)
	MaxSubmissionID(ctx context.Context) (uint64, error)
}

type SubmissionBroadcaster interface {
	BroadcastSubmission(ev feed.SubmissionEvent)
}

const monitorBatchSize = 100

// ChangeMonitor polls the shared database for submissions written by any
// replica and pushes them to the local feed. Only rows inserted after Start
// are reported.
type ChangeMonitor struct {
	Source      SubmissionSource
	Broadcaster SubmissionBroadcaster
	Interval    time.Duration
	StopChan    chan struct{}

	lastID   uint64
	stopOnce sync.Once
}

func NewChangeMonitor(source SubmissionSource, broadcaster SubmissionBroadcaster) *ChangeMonitor {
	return &ChangeMonitor{
		Source:      source,
		Broadcaster: broadcaster,
		StopChan:    make(chan struct{}),
		Interval:    2 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	if err := cm.seed(); err != nil {
		utils.ErrorLogger.WithError(err).Error("change monitor: reading starting point")
	}

	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.StopChan) })
}

func (cm *ChangeMonitor) seed() error {
	ctx, cancel := context.WithTimeout(context.Background(), cm.Interval)
	defer cancel()
	maxID, err := cm.Source.MaxSubmissionID(ctx)
	if err != nil {
		return err
	}
	cm.lastID = maxID
	return nil
}

// checkChanges broadcasts every submission newer than the last one seen.
// It returns how many were sent.
func (cm *ChangeMonitor) checkChanges() int {
	sent := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), cm.Interval)
		subs, err := cm.Source.SubmissionsAfter(ctx, cm.lastID, monitorBatchSize)
		cancel()
		if err != nil {
			utils.ErrorLogger.WithError(err).Error("change monitor: fetching submissions")
			return sent
		}

		for _, sub := range subs {
			cm.Broadcaster.BroadcastSubmission(feed.SubmissionEvent{
				ID:        sub.ID,
				Form:      sub.FormName,
				CreatedAt: sub.CreatedAt,
			})
			cm.lastID = sub.ID
			sent++
		}

		if len(subs) < monitorBatchSize {
			if sent > 0 {
				utils.InfoLogger.WithField("count", sent).Debug("change monitor: broadcast submissions")
			}
			return sent
		}
	}
}
