package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StartBackgroundJobs wires the periodic jobs: unread-message draining
// for connected sessions, expired-credential pruning, and session state
// logging via the event bus.
func (a *Application) StartBackgroundJobs(manager *whatsapp.Manager, registry *whatsapp.Registry) {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 5m", func() {
		a.SchedSyncUnreadTask(manager, registry)
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1m", func() {
		a.SchedRefreshSessionStatusTask(registry)
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedPruneApiKeysTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if subErr := a.bus.Subscribe(whatsapp.TopicSessionState, func(session, status string) {
		zap.L().Info("session state changed",
			zap.String("session", session), zap.String("status", status))
	}); subErr != nil {
		zap.S().Errorf("bus subscribe error %s", subErr.Error())
	}

	a.sched.Start()
}

// SchedSyncUnreadTask drains unread messages from every connected session
// so conversations missed while the service was down still get answered.
func (a *Application) SchedSyncUnreadTask(manager *whatsapp.Manager, registry *whatsapp.Registry) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for _, name := range registry.Names() {
		if err := manager.SyncUnread(ctx, name); err != nil {
			zap.L().Warn("unread sync failed",
				zap.String("session", name), zap.Error(err))
		}
	}
}

// SchedRefreshSessionStatusTask reconciles stored session status with the
// live connection state of each registered client.
func (a *Application) SchedRefreshSessionStatusTask(registry *whatsapp.Registry) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, name := range registry.Names() {
		cli, ok := registry.Get(name)
		if !ok {
			continue
		}
		sess, err := a.database.Sessions().GetByName(ctx, name)
		if err != nil {
			continue
		}
		status := domain.SessionAuthed
		if !cli.IsConnected() {
			status = domain.SessionDisconnected
		}
		if sess.Status == status || sess.Status == domain.SessionQrGenerated {
			continue
		}
		if err := a.database.Sessions().UpsertStatus(ctx, name, sess.UserID, status); err != nil {
			zap.L().Warn("session status refresh failed",
				zap.String("session", name), zap.Error(err))
		}
	}
}

// SchedPruneApiKeysTask removes login tokens past their expiry.
func (a *Application) SchedPruneApiKeysTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if a.gormDB == nil {
		return
	}
	a.gormDB.Where("expires_at < ?", time.Now()).Delete(&domain.ApiKey{})
}
