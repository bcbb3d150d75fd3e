package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohitkumar/loanwizard/analytics"
	"github.com/mohitkumar/loanwizard/cache"
	"github.com/mohitkumar/loanwizard/client"
	"github.com/mohitkumar/loanwizard/config"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/metadata"
	"github.com/mohitkumar/loanwizard/metrics"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/persistence/memory"
	"github.com/mohitkumar/loanwizard/persistence/redis"
	"github.com/mohitkumar/loanwizard/rest"
	"github.com/mohitkumar/loanwizard/runner"
	"github.com/mohitkumar/loanwizard/store"
	"github.com/mohitkumar/loanwizard/util"
	"go.uber.org/zap"
)

type Agent struct {
	Config          config.Config
	metadataService *metadata.MetadataServiceImpl
	sessionClient   *client.SessionClient
	stateCache      *cache.ThreadStateCache
	recorder        *metrics.PrometheusRecorder
	collector       analytics.ApplicationDataCollector
	syncLoop        *runner.SyncLoop
	actions         *store.Actions
	httpServer      *rest.Server
	sessionRefresh  *util.TickWorker
	closers         []func() error
	shutdown        bool
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupMetadataService,
		a.setupCollector,
		a.setupSyncLoop,
		a.setupActions,
		a.setupHttpServer,
		a.setupSessionRefresh,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupMetadataService() error {
	var storage metadata.DefinitionStorage
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		encDec, err := util.NewEncoderDecoder[model.WizardDefinition](string(a.Config.EncoderDecoderType))
		if err != nil {
			return err
		}
		dao := redis.NewRedisDefinitionDao(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
			PoolSize:  a.Config.RedisConfig.PoolSize,
		}, encDec)
		a.closers = append(a.closers, dao.Close)
		storage = dao
	case config.STORAGE_TYPE_INMEM, "":
		storage = memory.NewDefinitionDao()
	default:
		return fmt.Errorf("unsupported storage type %s", a.Config.StorageType)
	}
	a.metadataService = metadata.NewMetadataService(storage)
	return nil
}

func (a *Agent) setupCollector() error {
	collector, err := analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	a.collector = collector
	a.closers = append(a.closers, collector.Close)
	return nil
}

func (a *Agent) setupSyncLoop() error {
	remote := a.Config.RemoteConfig
	a.sessionClient = client.NewSessionClient(client.Config{
		BaseURL:        remote.BaseURL,
		AssistantId:    remote.AssistantId,
		RequestTimeout: remote.RequestTimeout,
	})
	a.stateCache = cache.NewThreadStateCache(a.Config.StateCacheTTL)
	a.recorder = metrics.NewPrometheusRecorder()
	a.syncLoop = runner.NewSyncLoop(a.sessionClient, a.stateCache, a.recorder, runner.Config{
		PollInterval:    remote.PollInterval,
		MaxPollAttempts: remote.MaxPollAttempts,
	})
	return nil
}

func (a *Agent) setupActions() error {
	a.actions = store.NewActions(store.NewStore(), a.sessionClient, a.syncLoop, a.metadataService, a.collector, a.recorder, store.ActionsConfig{
		UserId:       a.Config.UserId,
		HistoryLimit: a.Config.HistoryLimit,
	})
	return nil
}

func (a *Agent) setupHttpServer() error {
	capacity := a.Config.SendQueueCapacity
	if capacity <= 0 {
		capacity = 16
	}
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.actions, a.recorder.Handler(), &a.wg, capacity)
	return err
}

// setupSessionRefresh keeps the session list and the connected flag
// current while the gateway is serving.
func (a *Agent) setupSessionRefresh() error {
	if a.Config.SessionRefresh <= 0 {
		return nil
	}
	a.sessionRefresh = util.NewTickWorker("session-refresh", a.Config.SessionRefresh, a.refreshSessions, &a.wg)
	return nil
}

func (a *Agent) refreshSessions(ctx context.Context) {
	if err := a.actions.LoadSessions(ctx); err != nil {
		logger.Warn("session refresh failed", zap.Error(err))
	}
}

func (a *Agent) Actions() *store.Actions {
	return a.actions
}

func (a *Agent) MetadataService() metadata.MetadataService {
	return a.metadataService
}

// Start serves the REST gateway in the background.
func (a *Agent) Start() error {
	if a.sessionRefresh != nil {
		a.sessionRefresh.Start()
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{a.httpServer.Stop}
	if a.sessionRefresh != nil {
		shutdown = append(shutdown, a.sessionRefresh.Stop)
	}
	shutdown = append(shutdown, a.closers...)
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	_ = logger.Sync()
	return nil
}
