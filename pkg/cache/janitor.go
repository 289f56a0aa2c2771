package cache

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultJanitorSchedule is how often expired entries are purged.
const DefaultJanitorSchedule = "@every 10m"

// Parser accepts standard cron expressions with an optional seconds field and
// descriptors such as @every and @hourly.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Purger is anything with expired entries to drop.
type Purger interface {
	Purge() int
}

// Janitor periodically purges expired entries from a cache.
type Janitor struct {
	target Purger

	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	expr     string
	schedule cron.Schedule
	running  bool
}

// NewJanitor returns a stopped Janitor for target.
func NewJanitor(target Purger) *Janitor {
	if target == nil {
		panic("janitor target cannot be nil")
	}
	return &Janitor{
		target: target,
		cron:   cron.New(cron.WithParser(Parser)),
	}
}

// Schedule sets the purge schedule, replacing any previous one. An empty
// expression means DefaultJanitorSchedule.
func (j *Janitor) Schedule(expr string) error {
	if expr == "" {
		expr = DefaultJanitorSchedule
	}
	sched, err := Parser.Parse(expr)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.entry != 0 {
		j.cron.Remove(j.entry)
		j.entry = 0
	}
	j.entry = j.cron.Schedule(sched, cron.FuncJob(j.purge))
	j.expr = expr
	j.schedule = sched
	return nil
}

func (j *Janitor) purge() {
	n := j.target.Purge()
	if n > 0 {
		logrus.WithField("removed", n).Debug("purged expired cache entries")
	}
}

// Start runs the schedule in the background. It is a no-op if already running.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.running = true
	j.cron.Start()
	logrus.WithField("schedule", j.expr).Debug("cache janitor started")
}

// Stop halts the schedule and waits for a running purge to return.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	ctx := j.cron.Stop()
	j.mu.Unlock()

	<-ctx.Done()
	logrus.Debug("cache janitor stopped")
}

// Status reports the next planned purge and whether the janitor is running.
func (j *Janitor) Status() (nextRun time.Time, running bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	running = j.running
	if j.entry != 0 {
		nextRun = j.cron.Entry(j.entry).Next
	}
	if nextRun.IsZero() && j.schedule != nil {
		nextRun = j.schedule.Next(time.Now())
	}
	return
}
