/*
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

// Package config loads the import daemon's on-disk configuration: the
// list of watched folders, thread-watcher subscriptions, and shared
// fetch settings.
package config

import (
	"errors"
	"time"
)

// ErrEmptyPath is returned by Load when called with an empty path, rather
// than silently falling through to a file-not-found error.
var ErrEmptyPath = errors.New("config: empty config path")

// Config is the whole of the import daemon's persisted settings.
type Config struct {
	Folders         []FolderConfig
	ThreadWatchers  []ThreadWatcherConfig
	RateLimitPerSec float64
	UserAgent       string
}

// FolderConfig is one watched folder, read from the "folders" array.
type FolderConfig struct {
	Name            string
	Path            string
	Mimes           []string
	Period          time.Duration
	Tag             string
	OpenPopup       bool
	DeleteOnSuccess bool
}

// ThreadWatcherConfig is one thread subscription, read from the
// "thread_watchers" array.
type ThreadWatcherConfig struct {
	ThreadURL   string
	CheckPeriod time.Duration
	Tag         string
}

// Load reads the JSON config file at path, expanding any "${VAR}"
// environment references found in string values, then decodes it into
// Config.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	s, err := readSettingsFile(path)
	if err != nil {
		return Config{}, err
	}
	return decode(s)
}

func decode(s settings) (Config, error) {
	cfg := Config{
		RateLimitPerSec: float64(s.intOr("rate_limit_per_minute", 60)) / 60,
		UserAgent:       s.strOr("user_agent", "hydrus-import-pipeline/1.0"),
	}

	for _, raw := range s.objectList("folders") {
		cfg.Folders = append(cfg.Folders, FolderConfig{
			Name:            raw.requireStr("name"),
			Path:            raw.requireStr("path"),
			Mimes:           raw.strListOr("mimes"),
			Period:          time.Duration(raw.intOr("period_seconds", 3600)) * time.Second,
			Tag:             raw.strOr("tag", ""),
			OpenPopup:       raw.boolOr("open_popup", true),
			DeleteOnSuccess: raw.boolOr("delete_on_success", true),
		})
		if err := raw.validate(); err != nil {
			return Config{}, err
		}
	}

	for _, raw := range s.objectList("thread_watchers") {
		cfg.ThreadWatchers = append(cfg.ThreadWatchers, ThreadWatcherConfig{
			ThreadURL:   raw.requireStr("thread_url"),
			CheckPeriod: time.Duration(raw.intOr("check_period_seconds", 30)) * time.Second,
			Tag:         raw.strOr("tag", ""),
		})
		if err := raw.validate(); err != nil {
			return Config{}, err
		}
	}

	if err := s.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
