package cron

import (
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager owns the cron engine and the jobs registered on it.
type Manager struct {
	engine *cron.Cron
}

func NewManager() *Manager {
	return &Manager{
		engine: cron.New(),
	}
}

// Register adds a job under the given spec. An empty spec leaves the job disabled.
func (m *Manager) Register(spec string, job cron.Job) error {
	if spec == "" {
		return nil
	}
	if _, err := m.engine.AddJob(spec, job); err != nil {
		return err
	}
	log.L.Info("cron job registered", zap.String("spec", spec))
	return nil
}

// Len reports how many jobs are scheduled.
func (m *Manager) Len() int {
	return len(m.engine.Entries())
}

func (m *Manager) Start() {
	if m.Len() == 0 {
		return
	}
	log.L.Info("cron engine starting")
	m.engine.Start()
}

func (m *Manager) Stop() {
	ctx := m.engine.Stop()
	<-ctx.Done()
	log.L.Info("cron engine stopped")
}
