package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Printfer is satisfied by *logrus.Logger and *log.Logger.
type Printfer interface {
	Printf(format string, args ...interface{})
}

type ScheduledTask struct {
	cronID cron.EntryID
	cron   *cron.Cron
	cancel chan struct{}
}

// NewScheduledTask starts running taskFunc on cronSpec. A tick that fires while the previous run is still going
// is skipped.
func NewScheduledTask(cronSpec string, taskFunc func(), logger Printfer) (*ScheduledTask, error) {
	cronLogger := cron.DiscardLogger
	if logger != nil {
		cronLogger = cron.PrintfLogger(logger)
	}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	cancel := make(chan struct{})
	task := &ScheduledTask{
		cron:   c,
		cancel: cancel,
	}

	id, err := c.AddFunc(cronSpec, func() {
		select {
		case <-cancel:
			return
		default:
			taskFunc()
		}
	})
	if err != nil {
		return nil, err
	}

	task.cronID = id
	c.Start()
	return task, nil
}

// Next is the time of the next scheduled run.
func (s *ScheduledTask) Next() time.Time {
	return s.cron.Entry(s.cronID).Next
}

// Cancel stops future runs and waits for a running one to finish.
func (s *ScheduledTask) Cancel() {
	s.cron.Remove(s.cronID)
	close(s.cancel)
	<-s.cron.Stop().Done()
}

// ValidateSpec reports whether cronSpec is a valid five field schedule.
func ValidateSpec(cronSpec string) error {
	_, err := cron.ParseStandard(cronSpec)
	return err
}
