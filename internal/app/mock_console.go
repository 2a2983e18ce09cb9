// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/sensors"
)

// RunMockConsole drives the Razor client against the simulated device and
// prints every sample, without MQTT, until SIGINT/SIGTERM. Timeouts, parsing
// mode and the sample interval come from cfg.
func RunMockConsole(cfg *config.Config, logger *zap.SugaredLogger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runMockConsole(cfg, logger, os.Stdout, sigCh)
}

func runMockConsole(cfg *config.Config, logger *zap.SugaredLogger, out io.Writer, stop <-chan os.Signal) error {
	dev, err := sensors.OpenSimulatedRazor(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.IMU.CaptureReference(); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			if err := dev.IMU.Update(); err != nil {
				logger.Warnf("console: %v", err)
				continue
			}
			printSample(out, imu.NewSample(cfg.RazorSourceName, t, dev.IMU))
		case <-stop:
			logger.Info("console: shutting down")
			return nil
		}
	}
}
