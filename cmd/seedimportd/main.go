/*
Copyright 2011 Google Inc.
Copyright 2026 The Hydrus Go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The seedimportd binary runs the import pipeline daemon: it loads a JSON
// config describing watched folders and thread-watcher subscriptions, and
// starts one importer worker per entry, each logging its own page key.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Stonedestroyer/hydrus/pkg/collab"
	"github.com/Stonedestroyer/hydrus/pkg/config"
	"github.com/Stonedestroyer/hydrus/pkg/fetch"
	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/importer/folder"
	"github.com/Stonedestroyer/hydrus/pkg/importer/threadwatcher"
	"github.com/Stonedestroyer/hydrus/pkg/osutil"
)

var (
	flagConfig  = flag.String("config", "", "path to the import config file; defaults to import-config.json in the hydrus config directory ($HYDRUS_CONFIG_DIR when set)")
	flagVerbose = flag.Bool("verbose", false, "enable debug-level logging")
)

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func configPath() string {
	if *flagConfig != "" {
		return *flagConfig
	}
	return osutil.UserConfigPath()
}

// session bundles the daemon's logger and its live importer set, keyed by
// page key.
type session struct {
	log       *zap.Logger
	importers map[string]importer.Importer
}

func (s *session) startAll(ctx context.Context) {
	for pageKey, im := range s.importers {
		s.log.Info("starting importer", zap.String("page_key", pageKey))
		im.Start(ctx, pageKey)
	}
}

func handleSignals(cancel context.CancelFunc, log *zap.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	log.Info("received shutdown signal", zap.String("signal", sig.String()))
	cancel()
	// Worker loops poll ctx.Err() at most once a second; give them a
	// moment to actually exit before the process does.
	time.Sleep(1200 * time.Millisecond)
}

func main() {
	flag.Parse()

	log, err := newLogger(*flagVerbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seedimportd: building logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("loading config", zap.String("path", path), zap.Error(err))
	}
	log.Info("loaded config", zap.String("path", path), zap.Int("folders", len(cfg.Folders)), zap.Int("thread_watchers", len(cfg.ThreadWatchers)))

	httpClient := fetch.New(cfg.RateLimitPerSec, cfg.UserAgent)
	mime := collab.NewDefaultMimeDetector()
	paths := collab.NewDefaultPathExpander()
	backend := collab.NewFake() // the backing database is an out-of-scope collaborator; see DESIGN.md

	sess := &session{log: log, importers: make(map[string]importer.Importer)}

	for _, fc := range cfg.Folders {
		mimes := make(map[string]bool, len(fc.Mimes))
		for _, m := range fc.Mimes {
			mimes[m] = true
		}
		actions := folder.DefaultActions()
		if !fc.DeleteOnSuccess {
			actions[importer.StatusSuccessful] = importer.ActionIgnore
			actions[importer.StatusRedundant] = importer.ActionIgnore
		}
		f := folder.New(folder.Config{
			Name:    fc.Name,
			Path:    fc.Path,
			Mimes:   mimes,
			Actions: actions,
			Period:  fc.Period,
			Tag:     fc.Tag,
		}, folder.Deps{
			FileImporter: backend,
			Folders:      backend,
			Mime:         mime,
			Paths:        paths,
			Logger:       log.Named("folder." + fc.Name),
		})
		sess.importers[uuid.NewString()] = f
	}

	for _, tc := range cfg.ThreadWatchers {
		tw := threadwatcher.New(1, tc.CheckPeriod, importer.ImportFileOptions{}, threadwatcher.Deps{
			FileImporter: backend,
			MD5s:         backend,
			MediaResults: backend,
			ContentUpd:   backend,
			HTTP:         collab.NewDefaultHTTPFetcher(httpClient),
			Temp:         collab.NewDefaultTempFiles(httpClient),
			URLs:         backend,
			PoliteWait:   5 * time.Second,
			Logger:       log.Named("threadwatcher"),
		})
		tw.SetThreadURL(tc.ThreadURL)
		if tc.Tag != "" {
			tw.SetTags([]string{tc.Tag})
		}
		sess.importers[uuid.NewString()] = tw
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess.startAll(ctx)

	handleSignals(cancel, log)
}
