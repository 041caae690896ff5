package main

import (
	"context"
	"os"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/user"
	appfs "github.com/trezcool/mentorship/fs"
	emailsvc "github.com/trezcool/mentorship/services/email"
	logsvc "github.com/trezcool/mentorship/services/logger"
	"github.com/trezcool/mentorship/services/scheduler"
	"github.com/trezcool/mentorship/storage"
)

func main() {
	conf := core.NewConfig()
	zlog := logsvc.NewZerolog(logsvc.Config{Level: "info", Pretty: true, Out: os.Stderr}).
		With().
		Str("app", "admin").
		Logger()
	logger := logsvc.NewZeroLogger(zlog)

	// set up store
	store, err := storage.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up store", err)
	}

	// set up digest
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug, logger)
	var mailer core.EmailService
	if conf.Debug {
		mailer = emailsvc.NewSyncConsoleService(conf, logger)
	} else {
		mailer = emailsvc.NewSendgridService(conf, logger)
	}
	aggregator := metrics.NewAggregator(metrics.WithTotalFees(conf.Risk.TotalFees))
	digest := scheduler.NewDigestJob(scheduler.DigestConfig{
		Log:      zlog,
		Students: student.NewService(store.Students, aggregator),
		Users:    user.NewService(store.Users),
		Mailer:   mailer,
	})

	// start CLI
	cli := commandLine{
		conf:   conf,
		store:  store,
		digest: digest,
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	if cerr := store.Close(); cerr != nil {
		logger.Error("closing store", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
