package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"drawers/internal/config"
	"drawers/internal/icon"
	"drawers/internal/logging"
	"drawers/internal/watcher"
)

func main() {
	verbosity := flag.Int("v", -1, "log verbosity 0-3 (overrides config)")
	configPath := flag.String("config", "", "path to drawers.json")
	flag.Parse()

	var mgr *config.Manager
	if *configPath != "" {
		mgr = config.NewManagerAt(*configPath)
	} else {
		mgr = config.NewManager()
	}

	cfg, err := mgr.Load()
	if err != nil {
		logging.Setup(0)
		fatalLog := logging.GetLogger("main")
		fatalLog.Fatal().Err(err).Msg("Cannot load configuration")
	}

	if *verbosity >= 0 {
		logging.Setup(*verbosity)
	} else {
		logging.Setup(cfg.Logging.Verbosity)
	}
	log := logging.GetLogger("main")

	// extra drawer paths on the command line join the configured ones
	drawerList := cfg.Drawers
	for _, p := range flag.Args() {
		drawerList = append(drawerList, config.Drawer{Name: filepath.Base(p), Path: p})
	}
	if len(drawerList) == 0 {
		log.Warn().Msg("No drawers configured, nothing to resolve")
		return
	}

	fsys := &icon.RealFileSystem{}
	provider := icon.InitDefault(cfg.Icons.FolderIconPath)
	dispatcher := icon.NewDispatcher(fsys, provider, logging.GetLogger("dispatcher"), icon.Options{
		ThumbnailSize: cfg.Icons.ThumbnailSize,
		Timeout:       cfg.Icons.ResolveTimeout(),
	})
	cache := icon.NewResultCache(fsys, dispatcher, logging.GetLogger("cache"))
	service := icon.NewService(cache, 0, logging.GetLogger("service"))
	defer service.Close()

	roots := make([]string, 0, len(drawerList))
	for _, d := range drawerList {
		roots = append(roots, d.Path)
	}
	dw, err := watcher.New(roots, logging.GetLogger("watcher"))
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot start drawer watcher")
	}
	dw.Start()
	defer dw.Stop()

	openAll := func() {
		paths := listDrawers(drawerList, log)
		gen := service.OpenDrawer(paths)
		log.Info().Uint64("gen", gen).Int("entries", len(paths)).Msg("Drawer listing submitted")
	}
	openAll()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case u := <-service.Updates():
			name := ""
			if u.Icon.Resource != nil {
				name = u.Icon.Resource.Name()
			}
			log.Info().
				Uint64("gen", u.Gen).
				Str("path", u.Path).
				Str("label", u.Icon.Label).
				Str("icon", name).
				Bool("degraded", u.Icon.Degraded).
				Msg("Resolved")
		case root := <-dw.Changes():
			log.Info().Str("path", root).Msg("Drawer changed, reloading")
			service.Invalidate()
			openAll()
		case <-sig:
			log.Info().Msg("Shutting down")
			return
		}
	}
}

// listDrawers enumerates each drawer directory, applying its ignore
// patterns. Unreadable drawers are skipped, never fatal.
func listDrawers(drawerList []config.Drawer, log zerolog.Logger) []string {
	var paths []string
	for _, d := range drawerList {
		entries, err := os.ReadDir(d.Path)
		if err != nil {
			log.Warn().Err(err).Str("drawer", d.Name).Msg("Cannot list drawer directory")
			continue
		}
		for _, e := range entries {
			if d.Ignored(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(d.Path, e.Name()))
		}
	}
	return paths
}
