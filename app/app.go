package app

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/civicgrid/vote-engine/api"
	"github.com/civicgrid/vote-engine/audit"
	"github.com/civicgrid/vote-engine/config"
	"github.com/civicgrid/vote-engine/db/dao"
	"github.com/civicgrid/vote-engine/db/model"
	"github.com/civicgrid/vote-engine/lifecycle"
	"github.com/civicgrid/vote-engine/metrics"
	"github.com/civicgrid/vote-engine/queue"
	"github.com/civicgrid/vote-engine/verify"
)

type App struct {
	cfg           *config.Config
	pollManager   *lifecycle.Manager
	voteSubmitter *queue.Submitter
	verifier      *verify.Verifier
	auditEmitter  *audit.Emitter
	metricService *metrics.MetricService
	apiServer     *api.Server
}

func NewApp(cfg *config.Config) *App {
	db, err := openDB(&cfg.DBConfig)
	if err != nil {
		panic(fmt.Sprintf("open db error, err=%+v", err.Error()))
	}

	dbConfig, err := db.DB()
	if err != nil {
		panic(err)
	}
	dbConfig.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	dbConfig.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)

	model.InitPollTable(db)
	model.InitPollOptionTable(db)
	model.InitVoteTable(db)

	pollDao := dao.NewPollDao(db)
	voteDao := dao.NewVoteDao(db)
	daoManager := dao.NewDaoManager(pollDao, voteDao)

	metricService := metrics.NewMetricService(cfg)

	auditEmitter := audit.NewEmitter(cfg.QueueConfig.AuditBufferSize, metricService,
		audit.LogSink{}, audit.NewAlertSink(&cfg.AlertConfig))

	queueDataHandler := queue.NewDataHandler(daoManager)
	voteSubmitter := queue.NewSubmitter(&cfg.QueueConfig, queueDataHandler, auditEmitter, metricService)

	lifecycleDataHandler := lifecycle.NewDataHandler(daoManager)
	pollManager := lifecycle.NewManager(lifecycleDataHandler, auditEmitter, voteSubmitter)

	verifyDataHandler := verify.NewDataHandler(daoManager)
	verifier := verify.NewVerifier(verifyDataHandler, auditEmitter, voteSubmitter, metricService)

	apiServer := api.NewServer(pollManager, voteSubmitter, verifier)

	return &App{
		cfg:           cfg,
		pollManager:   pollManager,
		voteSubmitter: voteSubmitter,
		verifier:      verifier,
		auditEmitter:  auditEmitter,
		metricService: metricService,
		apiServer:     apiServer,
	}
}

func openDB(cfg *config.DBConfig) (*gorm.DB, error) {
	switch cfg.Dialect {
	case config.DBDialectSqlite3:
		db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
		if err != nil {
			return nil, errors.Wrapf(err, "open sqlite db %s", cfg.DBPath)
		}
		return db, nil
	default:
		password := viper.GetString(config.FlagConfigDbPass)
		if password == "" {
			password = cfg.Password
		}
		dbPath := fmt.Sprintf("%s:%s@%s", cfg.Username, password, cfg.DBPath)
		db, err := gorm.Open(mysql.Open(dbPath), &gorm.Config{})
		if err != nil {
			return nil, errors.Wrapf(err, "open mysql db %s", cfg.DBPath)
		}
		return db, nil
	}
}

func (a *App) Start() {
	go a.auditEmitter.DispatchLoop()
	go a.metricService.Start()

	schedulerPeriod := time.Duration(a.cfg.QueueConfig.SchedulerPeriodSec) * time.Second
	if schedulerPeriod <= 0 {
		schedulerPeriod = 10 * time.Second
	}
	go a.pollManager.SchedulerLoop(schedulerPeriod)

	listenAddr := a.cfg.ServerConfig.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	if err := a.apiServer.ListenAndServe(listenAddr); err != nil {
		panic(err)
	}
}
