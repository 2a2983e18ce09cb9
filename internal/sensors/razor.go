// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/multierr"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/orientation"
	"github.com/relabs-tech/razor_imu/internal/razor"
)

// Firmware commands sent once after the port is opened: text output of
// angles, and continuous streaming off so that frames only come on "#f".
var firmwareSetup = []string{"#ot", "#o0"}

const drainWindow = 50 * time.Millisecond

// Razor owns the serial port a razor.IMU is attached to.
type Razor struct {
	IMU *razor.IMU

	port io.ReadWriteCloser
	ch   *razor.StreamChannel
}

// openPort is a variable so tests can substitute the serial port.
var openPort = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	return serial.Open(opts)
}

// OpenRazor opens the Razor serial port described by cfg and returns a
// ready client.
func OpenRazor(cfg *config.Config, logger razor.Logger) (*Razor, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.RazorSerialPort,
		BaudRate:              uint(cfg.RazorBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := openPort(opts)
	if err != nil {
		return nil, fmt.Errorf("razor IMU: open %s: %w", cfg.RazorSerialPort, err)
	}
	logger.Infof("razor IMU: serial port opened on %s at %d baud", opts.PortName, opts.BaudRate)

	return attach(port, cfg, logger)
}

// OpenSimulatedRazor returns a client talking to an in-process simulator
// driven by the mock orientation source.
func OpenSimulatedRazor(cfg *config.Config, logger razor.Logger) (*Razor, error) {
	sim := orientation.NewSimulator(orientation.NewMockSource(), "YPR")
	logger.Infof("razor IMU: using simulated device")
	return attach(sim, cfg, logger)
}

func attach(port io.ReadWriteCloser, cfg *config.Config, logger razor.Logger) (*Razor, error) {
	ch := razor.NewStreamChannel(port, cfg.ResponseTimeout())

	for _, cmd := range firmwareSetup {
		if err := ch.WriteLine(cmd); err != nil {
			return nil, multierr.Combine(
				fmt.Errorf("razor IMU: send %q: %w", cmd, err),
				ch.Close(),
				port.Close(),
			)
		}
	}
	drain(ch, logger)

	opts := []razor.Option{
		razor.WithTimeout(cfg.ResponseTimeout()),
		razor.WithLogger(logger),
	}
	if cfg.RazorLenientParse {
		opts = append(opts, razor.WithLenientParsing())
	}

	return &Razor{
		IMU:  razor.New(ch, opts...),
		port: port,
		ch:   ch,
	}, nil
}

// drain discards frames the firmware streamed before "#o0" took effect.
func drain(ch *razor.StreamChannel, logger razor.Logger) {
	for ch.Wait(drainWindow) == razor.WaitReady {
		line, err := ch.ReadUntil('\n')
		logger.Debugf("razor IMU: discarded %q", line)
		if err != nil {
			return
		}
	}
}

// Close stops the channel reader and closes the serial port.
func (r *Razor) Close() error {
	return multierr.Combine(r.ch.Close(), r.port.Close())
}
