package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskmate/taskmate/internal/credential"
	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/notify"
	"github.com/taskmate/taskmate/internal/relationship"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/session"
	"github.com/taskmate/taskmate/internal/store"
	tasksync "github.com/taskmate/taskmate/internal/sync"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "config file path")
	userID := flag.String("user", os.Getenv("TASKMATE_USER_ID"), "current user id")
	flag.Parse()

	if err := run(*configPath, *userID); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, userID string) error {
	if userID == "" {
		return fmt.Errorf("no user id: pass -user or set TASKMATE_USER_ID")
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	token := os.Getenv("TASKMATE_TOKEN")
	if token == "" {
		token, err = credential.Get(credential.SessionTokenKey)
		if err != nil || token == "" {
			return fmt.Errorf("no session token: set TASKMATE_TOKEN or store one in the keyring")
		}
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = model.DefaultDBPath()
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	gateway := remote.NewAPI(
		cfg.API.BaseURL, token,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
	)

	ctx := context.Background()

	sess := session.New(s, gateway)
	if err := sess.Init(ctx, userID); err != nil {
		return err
	}

	relationships := relationship.NewCache(gateway, s)
	if err := relationships.Refresh(ctx); err != nil {
		log.Printf("relationship refresh failed, using cached lists: %v", err)
	}
	if err := sess.ReloadUser(ctx); err != nil {
		return err
	}

	aggregator := notify.NewAggregator(
		gateway, s,
		cfg.Sync.DeadlineLookaheadDays,
		time.Duration(cfg.Sync.RefreshIntervalSec)*time.Second,
	)

	reconciler := tasksync.NewReconciler(s)
	coordinator := tasksync.NewCoordinator(gateway, s, reconciler)
	poller := tasksync.NewPoller(
		s, coordinator, aggregator,
		time.Duration(cfg.Sync.PollIntervalSec)*time.Second,
	)

	poller.Start()
	defer poller.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Printf("syncing as %s against %s", userID, cfg.API.BaseURL)
	for {
		select {
		case result := <-poller.Results():
			logResult(result)
		case <-sigCh:
			log.Println("shutting down")
			return nil
		}
	}
}

func logResult(r tasksync.Result) {
	if r.Error != nil {
		if r.AuthExpired {
			log.Printf("sync failed: session expired, re-authenticate: %v", r.Error)
			return
		}
		log.Printf("sync failed: %v", r.Error)
		return
	}

	changed := 0
	for _, res := range r.Reconciled {
		if res.Changed() {
			changed++
		}
	}
	log.Printf("sync ok: %d owners reconciled (%d changed), %d pending flushed",
		len(r.Reconciled), changed, r.Flushed)
	if r.UnreadCount >= 0 {
		log.Printf("notifications: %d unread", r.UnreadCount)
	}
}
