package main

import (
	"log"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/services/backend"
	"github.com/trezcool/academia/storage/session/inmem"
	"github.com/trezcool/academia/storage/session/pgstore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	cli := commandLine{
		backend: backend.NewClient(conf),
		catalog: school.NewCatalog(conf.ListView.DebounceDelay),
		out:     os.Stdout,
	}

	// set up DB: migrations and session purges only apply to the postgres store
	if conf.Session.Store == core.SessionStorePostgres {
		db, err := pgstore.Open(conf)
		errAndDie(err)
		defer db.Close()

		cli.db = db.DB
		cli.sessions = session.NewManager(pgstore.NewStore(db), conf.Session.TTL)
	} else {
		cli.sessions = session.NewManager(inmem.NewStore(), conf.Session.TTL)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
