// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/razor_imu/internal/app"
	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/logging"
)

func main() {
	configPath := flag.String("config", "./razor_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	logger, err := logging.New("web", cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("starting razor-imu web server (MQTT subscriber)")
	logger.Info("Note: live data requires the producer to be running (./imu_producer)")

	if err := app.RunWeb(cfg, logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}
