package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/services/backend"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	admissionstore "github.com/trezcool/academia/storage/admission/inmem"
	sessionmem "github.com/trezcool/academia/storage/session/inmem"
	"github.com/trezcool/academia/storage/session/pgstore"
	"github.com/trezcool/academia/storage/session/redisstore"
)

const (
	purgeInterval = time.Hour
	draftMaxAge   = 7 * 24 * time.Hour
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	storeLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SESSIONS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storeLogger.Enable(!conf.Debug)

	// set up the session store
	store, closeStore, err := openSessionStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session store: %v", err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			storeLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	client := backend.NewClient(conf)
	sessions := session.NewManager(store, conf.Session.TTL)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	drafts := admissionstore.NewStore()
	admissions := admission.NewService(drafts, client, mailSvc, validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Purger

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	pages := page.NewRegistry()
	go purge(purgeCtx, sessions, pages, drafts, storeLogger)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Backend:    client,
			Sessions:   sessions,
			Pages:      pages,
			Catalog:    school.NewCatalog(conf.ListView.DebounceDelay),
			Admissions: admissions,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// openSessionStore opens the store selected by conf.Session.Store and returns its closer.
func openSessionStore(conf *core.Config) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch conf.Session.Store {
	case core.SessionStoreMemory:
		return sessionmem.NewStore(), noop, nil

	case core.SessionStoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := redisstore.Open(ctx, conf)
		if err != nil {
			return nil, noop, err
		}
		return redisstore.NewStore(client), client.Close, nil

	case core.SessionStorePostgres:
		db, err := pgstore.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err = pgstore.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return pgstore.NewStore(db), db.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown session store %q", conf.Session.Store)
}

// purge deletes expired sessions and stale admission drafts every purgeInterval until ctx is done.
func purge(ctx context.Context, sessions *session.Manager, pages *page.Registry, drafts *admissionstore.Store, logger core.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := drafts.PurgeStale(now.Add(-draftMaxAge)); n > 0 {
				logger.Info(fmt.Sprintf("purged %d stale admission drafts", n))
			}

			n, err := sessions.Purge(ctx)
			if err != nil {
				logger.Error("purging sessions", err)
				continue
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("purged %d expired sessions", n))
			}
			if m := sweepPages(ctx, sessions, pages); m > 0 {
				logger.Info(fmt.Sprintf("unmounted %d pages of ended sessions", m))
			}
		}
	}
}

// sweepPages unmounts the pages of owners whose session is gone.
func sweepPages(ctx context.Context, sessions *session.Manager, pages *page.Registry) int {
	removed := 0
	for _, owner := range pages.Owners() {
		if _, err := sessions.Resolve(ctx, owner); err == session.ErrNotFound {
			removed += pages.RemoveOwner(owner)
		}
	}
	return removed
}
