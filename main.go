package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/TheNaotagrey/Asgaria/api"
	"github.com/TheNaotagrey/Asgaria/app"
	"github.com/TheNaotagrey/Asgaria/client"
	"github.com/TheNaotagrey/Asgaria/config"
	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/javascript"
	"github.com/TheNaotagrey/Asgaria/session"
	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/storage/sqlite"

	// hideconsole
	_ "github.com/ebitengine/hideconsole"
	"github.com/sirupsen/logrus"
)

func main() {
	var headless bool
	var snapshotPath string
	flag.BoolVar(&headless, "headless", false, "Run only the REST backend without GUI")
	flag.BoolVar(&headless, "h", false, "Run only the REST backend without GUI (shorthand)")
	flag.StringVar(&snapshotPath, "file", "", "Pixel snapshot (.lz4) to load on launch")
	flag.StringVar(&snapshotPath, "f", "", "Pixel snapshot (.lz4) to load on launch (shorthand)")
	flag.Parse()

	// Support a positional file argument so double-clicking a snapshot passes the path through
	if snapshotPath == "" {
		if args := flag.Args(); len(args) > 0 {
			snapshotPath = args[0]
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	cfg.ConfigureLogging()
	storage.SetDataDir(cfg.DataDir)

	var snap *editor.Snapshot
	if snapshotPath != "" {
		snap, err = editor.LoadSnapshotFile(filepath.Clean(snapshotPath))
		if err != nil {
			logrus.WithError(err).WithField("path", snapshotPath).Fatal("failed to load snapshot")
		}
	}

	lockPath := storage.DataFile(".asgaria.lock")
	_, lockOwned, cleanupLock, err := prepareLock(lockPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create lock file")
	}
	defer cleanupLock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless {
		if !lockOwned {
			logrus.WithField("lock", lockPath).Error("another instance owns the data directory")
			cleanupLock()
			os.Exit(1)
		}
		if err := runBackend(ctx, cfg, snap); err != nil {
			logrus.WithError(err).Error("backend stopped")
			cleanupLock()
			os.Exit(1)
		}
		return
	}

	if err := runWithGUI(ctx, cfg, snap, lockOwned); err != nil {
		logrus.WithError(err).Error("editor stopped")
		cleanupLock()
		os.Exit(1)
	}
}

func prepareLock(lockPath string) (*os.File, bool, func(), error) {
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	owned := true
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, false, nil, err
		}
		owned = false
		lockFile, err = os.OpenFile(lockPath, os.O_WRONLY, 0o644)
		if err != nil {
			return nil, false, nil, err
		}
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			if lockFile != nil {
				_ = lockFile.Close()
			}
			if owned {
				os.Remove(lockPath)
			}
		})
	}
	return lockFile, owned, cleanup, nil
}

// runBackend serves the REST and websocket API until ctx is cancelled.
func runBackend(ctx context.Context, cfg *config.Config, snap *editor.Snapshot) error {
	store, err := sqlite.Open(cfg.ResolveDBPath(storage.DataDir()))
	if err != nil {
		return err
	}
	defer store.Close()

	if snap != nil {
		gz, err := storage.EncodePixels(snap.Pixels)
		if err != nil {
			return err
		}
		rev, err := store.PutPixels(ctx, gz)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"regions": len(snap.Pixels), "revision": rev}).Info("snapshot imported into the store")
	}

	hub := api.NewHub()
	go hub.Run(ctx)
	srv := api.NewServer(ctx, store, hub, api.Options{MapWidth: cfg.MapWidth, MapHeight: cfg.MapHeight})
	return srv.ListenAndServe(ctx, cfg.Addr)
}

func runWithGUI(ctx context.Context, cfg *config.Config, snap *editor.Snapshot, lockOwned bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var backendDone chan struct{}
	if lockOwned {
		backendDone = make(chan struct{})
		go func() {
			defer close(backendDone)
			if err := runBackend(ctx, cfg, nil); err != nil {
				logrus.WithError(err).Warn("local backend unavailable, using " + cfg.APIBase)
			}
		}()
	} else {
		logrus.Warn("another instance owns the data directory; editing against " + cfg.APIBase)
	}

	st, err := editor.New(editor.Options{
		Width:              cfg.MapWidth,
		Height:             cfg.MapHeight,
		AllowUnboundedFill: cfg.AllowUnboundedFill,
	})
	if err != nil {
		return err
	}

	cli := client.New(cfg.APIBase, client.Options{MaxTries: cfg.SaveRetries, Timeout: cfg.SaveTimeout})
	dispatcher := client.NewDispatcher(cli, cfg.SaveTimeout)
	go dispatcher.Run(ctx)

	var rule session.Grouper
	if cfg.ColorScript != "" {
		r, err := javascript.CompileFile(ctx, cfg.ColorScript, cfg.ScriptTimeout)
		if err != nil {
			logrus.WithError(err).WithField("script", cfg.ColorScript).Warn("colour script disabled")
		} else {
			rule = r
		}
	}
	sess := session.New(st, dispatcher, rule)

	err = app.Run(ctx, app.Options{
		Session:       sess,
		Backend:       cli,
		Queue:         dispatcher,
		Results:       dispatcher.Results(),
		Events:        cli.Subscribe(ctx),
		Keybinds:      app.LoadKeybinds(),
		Startup:       snap,
		MapImage:      cfg.MapImage,
		BlankMapImage: cfg.BlankMapImage,
	})

	if sess.Unsaved() {
		if path, serr := app.SaveSnapshot(st, nil); serr != nil {
			logrus.WithError(serr).Error("failed to write shutdown snapshot")
		} else {
			logrus.WithField("path", path).Info("unsaved edits written to snapshot")
		}
	}
	if n := dispatcher.Pending(); n > 0 {
		logrus.WithField("pending", n).Warn("exiting with unsent backend requests")
	}

	cancel()
	if backendDone != nil {
		select {
		case <-backendDone:
		case <-time.After(6 * time.Second):
		}
	}
	return err
}
