package controllers

import (
	"context"
	"errors"
	"sync"

	"tracker/src/scheduler"
	"tracker/src/schemas"
	"tracker/src/services"
	"tracker/src/utils"

	"github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when an ingestion run is requested while another one is going.
var ErrRunInProgress = errors.New("an ingestion run is already in progress")

type Controller struct {
	Ingestion services.IngestionServiceI
	Logger    *logrus.Logger

	runMutex sync.Mutex

	SchedulerMutex sync.Mutex
	task           *scheduler.ScheduledTask

	lastMutex sync.RWMutex
	last      *schemas.RunSummary
}

func NewController(ingestion services.IngestionServiceI, logger *logrus.Logger) *Controller {
	return &Controller{Ingestion: ingestion, Logger: logger}
}

// RunIngestion runs one ingestion over codes. Runs never overlap: a second caller gets ErrRunInProgress.
func (c *Controller) RunIngestion(ctx context.Context, codes []string) (*schemas.RunSummary, error) {
	if !c.runMutex.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMutex.Unlock()

	summary := c.Ingestion.Run(utils.WithLogger(ctx, c.Logger), codes)

	c.lastMutex.Lock()
	c.last = &summary
	c.lastMutex.Unlock()
	return &summary, nil
}

// LastRun is the summary of the most recent finished run, or nil before the first one.
func (c *Controller) LastRun() *schemas.RunSummary {
	c.lastMutex.RLock()
	defer c.lastMutex.RUnlock()
	return c.last
}
