package controllers

import (
	"context"
	"errors"
	"time"

	"tracker/src/scheduler"
)

// ScheduleIngestion replaces the current schedule with one running every registered ETF on cronSpec.
func (c *Controller) ScheduleIngestion(cronSpec string) error {
	if err := scheduler.ValidateSpec(cronSpec); err != nil {
		return err
	}

	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	if c.task != nil {
		c.task.Cancel()
		c.task = nil
	}

	task, err := scheduler.NewScheduledTask(cronSpec, c.scheduledRun, c.Logger)
	if err != nil {
		return err
	}
	c.task = task
	c.Logger.WithField("schedule", cronSpec).WithField("next", task.Next().Format(time.RFC3339)).Info("Ingestion scheduled")
	return nil
}

// StopSchedule cancels the schedule, waiting for a scheduled run in flight.
func (c *Controller) StopSchedule() {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	if c.task != nil {
		c.task.Cancel()
		c.task = nil
	}
}

// NextRun is the time of the next scheduled run, zero when nothing is scheduled.
func (c *Controller) NextRun() time.Time {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	if c.task == nil {
		return time.Time{}
	}
	return c.task.Next()
}

func (c *Controller) scheduledRun() {
	_, err := c.RunIngestion(context.Background(), nil)
	if errors.Is(err, ErrRunInProgress) {
		c.Logger.Warn("Skipping scheduled ingestion, a manual run is in progress")
	}
}
