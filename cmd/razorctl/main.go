// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// razorctl talks to a Razor IMU directly, without MQTT, for bench checks.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/logging"
	"github.com/relabs-tech/razor_imu/internal/sensors"
)

const (
	flagConfig   = "config"
	flagPort     = "port"
	flagBaud     = "baud"
	flagTimeout  = "timeout"
	flagLenient  = "lenient"
	flagMock     = "mock"
	flagDebug    = "debug"
	flagInterval = "interval"
	flagCount    = "count"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "razorctl",
		Usage: "poll a Razor 9DOF IMU over its serial link",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "optional configuration file; flags override it",
			},
			&cli.StringFlag{
				Name:  flagPort,
				Usage: "serial port of the IMU",
			},
			&cli.IntFlag{
				Name:  flagBaud,
				Usage: "baud rate",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "response timeout, 0 waits forever",
			},
			&cli.BoolFlag{
				Name:  flagLenient,
				Usage: "accept malformed frames instead of failing",
			},
			&cli.BoolFlag{
				Name:  flagMock,
				Usage: "talk to a simulated device",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every frame",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "read",
				Usage:  "update once and print raw and full-scale angles",
				Action: readAction,
			},
			{
				Name:   "reference",
				Usage:  "capture a reference and print it",
				Action: referenceAction,
			},
			{
				Name:  "watch",
				Usage: "poll repeatedly and print every sample",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  flagInterval,
						Value: 100 * time.Millisecond,
						Usage: "time between polls",
					},
					&cli.IntFlag{
						Name:  flagCount,
						Usage: "stop after this many samples, 0 runs until interrupted",
					},
				},
				Action: watchAction,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagPort) {
		cfg.RazorSerialPort = c.String(flagPort)
	}
	if c.IsSet(flagBaud) {
		cfg.RazorBaudRate = c.Int(flagBaud)
	}
	if c.IsSet(flagTimeout) {
		d := c.Duration(flagTimeout)
		ms := int(d / time.Millisecond)
		if d > 0 && ms == 0 {
			// 0 means no bound, so keep sub-millisecond timeouts bounded
			ms = 1
		}
		cfg.RazorResponseTimeout = ms
	}
	if c.Bool(flagLenient) {
		cfg.RazorLenientParse = true
	}
	if c.Bool(flagDebug) {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

func withDevice(c *cli.Context, fn func(dev *sensors.Razor, logger *zap.SugaredLogger) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := logging.New("razorctl", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var dev *sensors.Razor
	if c.Bool(flagMock) {
		dev, err = sensors.OpenSimulatedRazor(cfg, logger)
	} else {
		dev, err = sensors.OpenRazor(cfg, logger)
	}
	if err != nil {
		return err
	}
	defer dev.Close()

	return fn(dev, logger)
}

func printAngles(w io.Writer, label string, a imu.Angles) {
	fmt.Fprintf(w, "%-10s pitch=%7.2f roll=%7.2f yaw=%7.2f\n", label, a.Pitch, a.Roll, a.Yaw)
}

func readAction(c *cli.Context) error {
	return withDevice(c, func(dev *sensors.Razor, _ *zap.SugaredLogger) error {
		if err := dev.IMU.Update(); err != nil {
			return err
		}
		s := imu.NewSample("razorctl", time.Now(), dev.IMU)
		printAngles(c.App.Writer, "raw", s.Raw)
		printAngles(c.App.Writer, "full-scale", s.FullScale)
		return nil
	})
}

func referenceAction(c *cli.Context) error {
	return withDevice(c, func(dev *sensors.Razor, _ *zap.SugaredLogger) error {
		if err := dev.IMU.CaptureReference(); err != nil {
			return err
		}
		printAngles(c.App.Writer, "reference", imu.FromVector(dev.IMU.Reference()))
		return nil
	})
}

func watchAction(c *cli.Context) error {
	return withDevice(c, func(dev *sensors.Razor, logger *zap.SugaredLogger) error {
		if err := dev.IMU.CaptureReference(); err != nil {
			return err
		}

		ticker := time.NewTicker(c.Duration(flagInterval))
		defer ticker.Stop()

		limit := c.Int(flagCount)
		for n := 0; limit == 0 || n < limit; n++ {
			select {
			case <-c.Context.Done():
				return nil
			case t := <-ticker.C:
				if err := dev.IMU.Update(); err != nil {
					logger.Warnf("update: %v", err)
					continue
				}
				s := imu.NewSample("razorctl", t, dev.IMU)
				fmt.Fprintf(c.App.Writer, "%s full R=%6.2f P=%6.2f Y=%6.2f  rel R=%6.2f P=%6.2f Y=%6.2f\n",
					t.Format(time.RFC3339),
					s.FullScale.Roll, s.FullScale.Pitch, s.FullScale.Yaw,
					s.Relative.Roll, s.Relative.Pitch, s.Relative.Yaw,
				)
			}
		}
		return nil
	})
}
