// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	businessflow "github.com/amirphl/Ame-no-Murakumo/business_flow"
	"github.com/amirphl/Ame-no-Murakumo/config"
	"github.com/amirphl/Ame-no-Murakumo/repository"
	"github.com/amirphl/Ame-no-Murakumo/utils"
)

// MaintenanceScheduler periodically ages out expired records across every
// store: ad selections in both schemas, dangling interactions, expired
// encryption keys and contexts, and stale debug configurations.
type MaintenanceScheduler struct {
	dataStore        businessflow.AdSelectionDataStore
	keyRepo          repository.EncryptionKeyRepository
	contextRepo      repository.EncryptionContextRepository
	consentedRepo    repository.ConsentedDebugConfigurationRepository
	logger           *log.Logger
	interval         time.Duration
	encryptionCtxTTL int64 // seconds
}

func NewMaintenanceScheduler(
	dataStore businessflow.AdSelectionDataStore,
	keyRepo repository.EncryptionKeyRepository,
	contextRepo repository.EncryptionContextRepository,
	consentedRepo repository.ConsentedDebugConfigurationRepository,
	loggingCfg config.LoggingConfig,
	fledgeCfg config.FledgeConfig,
) *MaintenanceScheduler {
	interval := fledgeCfg.MaintenanceInterval
	if interval <= 0 {
		interval = time.Hour
	}

	rotating := &lumberjack.Logger{
		Filename:   loggingCfg.FilePath,
		MaxSize:    loggingCfg.MaxSize,
		MaxBackups: loggingCfg.MaxBackups,
		MaxAge:     loggingCfg.MaxAge,
		Compress:   loggingCfg.Compress,
	}
	mw := io.MultiWriter(os.Stdout, rotating)

	return &MaintenanceScheduler{
		dataStore:        dataStore,
		keyRepo:          keyRepo,
		contextRepo:      contextRepo,
		consentedRepo:    consentedRepo,
		logger:           log.New(mw, "maintenance ", log.LstdFlags|log.Lmicroseconds|log.LUTC),
		interval:         interval,
		encryptionCtxTTL: fledgeCfg.EncryptionContextTTL,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *MaintenanceScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *MaintenanceScheduler) runOnce(ctx context.Context) {
	runID := uuid.NewString()
	now := utils.UTCNow()

	if err := s.dataStore.RemoveExpiredAdSelections(ctx); err != nil {
		s.logger.Printf("run=%s ad selection sweep failed: %v", runID, err)
	}

	deletedKeys, err := s.keyRepo.DeleteAllExpiredKeys(ctx, now)
	if err != nil {
		s.logger.Printf("run=%s encryption key sweep failed: %v", runID, err)
	} else if deletedKeys > 0 {
		s.logger.Printf("run=%s deleted %d expired encryption keys", runID, deletedKeys)
	}

	contextCutoff := now.Add(-time.Duration(s.encryptionCtxTTL) * time.Second)
	deletedContexts, err := s.contextRepo.RemoveExpired(ctx, contextCutoff)
	if err != nil {
		s.logger.Printf("run=%s encryption context sweep failed: %v", runID, err)
	} else if deletedContexts > 0 {
		s.logger.Printf("run=%s deleted %d expired encryption contexts", runID, deletedContexts)
	}

	deletedConfigs, err := s.consentedRepo.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Printf("run=%s consented debug sweep failed: %v", runID, err)
	} else if deletedConfigs > 0 {
		s.logger.Printf("run=%s deleted %d expired consented debug configurations", runID, deletedConfigs)
	}
}
