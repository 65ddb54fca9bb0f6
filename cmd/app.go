/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/valpere/transcompare/internal/config"
	"github.com/valpere/transcompare/internal/detector"
	"github.com/valpere/transcompare/internal/jobs"
	"github.com/valpere/transcompare/internal/pipeline"
	"github.com/valpere/transcompare/internal/project"
	"github.com/valpere/transcompare/internal/store"
	"github.com/valpere/transcompare/internal/validator"
)

// app is everything a run needs, built from one config.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	engine   *jobs.Engine
	history  *store.Store
	pipeline *pipeline.Pipeline
	project  *project.Service
}

// newApp builds the runtime from cfg. Logs go to stderr so that command
// output on stdout stays clean.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := cfg.NewLogger(os.Stderr)
	det := &lazyDetector{codes: cfg.Dispatch.DetectLanguages, log: log}

	var v jobs.LanguageValidator
	if cfg.Dispatch.ValidateTarget {
		d, err := det.get()
		if err != nil {
			return nil, fmt.Errorf("failed to build language detector: %w", err)
		}
		v = validator.NewWithDetector(d)
	}

	engine, err := cfg.NewEngine(log, v)
	if err != nil {
		return nil, err
	}
	if len(engine.Providers()) == 0 {
		log.Warn().Str("config", cfg.File).Msg("no providers configured; every translator will fail")
	}

	sheets, err := cfg.NewSheetStore(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheets backend: %w", err)
	}

	history, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		Store:       sheets,
		Capability:  engine,
		Detector:    det,
		Concurrency: cfg.Dispatch.Concurrency,
		Logger:      log,
	})
	if err != nil {
		history.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		engine:   engine,
		history:  history,
		pipeline: p,
		project:  project.NewService(p, sheets, history, cfg.Dispatch.Timeout, log),
	}, nil
}

func (a *app) Close() error {
	return a.history.Close()
}

// lazyDetector loads language models on first use, since most runs name
// their source language and never need them.
type lazyDetector struct {
	codes []string
	log   zerolog.Logger

	once sync.Once
	det  *detector.Detector
	err  error
}

func (l *lazyDetector) get() (*detector.Detector, error) {
	l.once.Do(func() {
		l.det, l.err = detector.NewFor(l.codes...)
		if l.err != nil {
			l.log.Error().Err(l.err).Strs("languages", l.codes).Msg("language detection disabled")
		}
	})
	return l.det, l.err
}

func (l *lazyDetector) DetectISO(text string) (string, bool) {
	det, err := l.get()
	if err != nil {
		return "", false
	}
	return det.DetectISO(text)
}
