// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/metrics"
	"github.com/relabs-tech/razor_imu/internal/orientation"
	"github.com/relabs-tech/razor_imu/internal/razor"
	"github.com/relabs-tech/razor_imu/internal/sensors"
)

// publishFunc sends one retained payload to topic.
type publishFunc func(topic string, payload []byte) error

func mqttPublisher(client mqtt.Client) publishFunc {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, true, payload)
		token.Wait()
		return token.Error()
	}
}

// connectMQTT connects to broker and waits for the result.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// producer polls the Razor once per tick and publishes what it read.
type producer struct {
	cfg     *config.Config
	imu     *razor.IMU
	publish publishFunc
	logger  *zap.SugaredLogger

	resetRequested atomic.Bool
	lastLog        time.Time
}

// requestReference makes the next tick capture a new reference.
func (p *producer) requestReference() {
	p.resetRequested.Store(true)
}

func (p *producer) tick(t time.Time) error {
	var err error
	if p.resetRequested.Swap(false) {
		if err = p.imu.ResetReference(); err == nil {
			metrics.ReferenceCaptures.Inc()
		} else {
			// try again next tick
			p.resetRequested.Store(true)
		}
	} else {
		err = p.imu.Update()
	}
	metrics.ObservePoll(err, p.imu.FullScale())
	if err != nil {
		return fmt.Errorf("razor update: %w", err)
	}

	sample := imu.NewSample(p.cfg.RazorSourceName, t, p.imu)
	pose := orientation.PoseFromVector(p.imu.FullScale())

	if err := p.publishJSON(p.cfg.TopicIMU, sample); err != nil {
		return err
	}
	if err := p.publishJSON(p.cfg.TopicPose, pose); err != nil {
		return err
	}

	if t.Sub(p.lastLog) >= time.Duration(p.cfg.ConsoleLogInterval)*time.Millisecond {
		p.lastLog = t
		p.logger.Infof("tick: full R=%.2f P=%.2f Y=%.2f | raw R=%.2f P=%.2f Y=%.2f | rel R=%.2f P=%.2f Y=%.2f",
			sample.FullScale.Roll, sample.FullScale.Pitch, sample.FullScale.Yaw,
			sample.Raw.Roll, sample.Raw.Pitch, sample.Raw.Yaw,
			sample.Relative.Roll, sample.Relative.Pitch, sample.Relative.Yaw,
		)
	}
	return nil
}

func (p *producer) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	if err := p.publish(topic, payload); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, err)
	}
	metrics.Published.WithLabelValues(topic).Inc()
	return nil
}

// RunProducer polls the Razor IMU at IMU_SAMPLE_INTERVAL and publishes
// samples and poses to MQTT until SIGINT/SIGTERM. With mock set, a simulated
// device is used instead of the serial port.
func RunProducer(cfg *config.Config, logger *zap.SugaredLogger, mock bool) (err error) {
	logger.Info("producer: starting Razor IMU producer")

	var dev *sensors.Razor
	if mock {
		dev, err = sensors.OpenSimulatedRazor(cfg, logger)
	} else {
		dev, err = sensors.OpenRazor(cfg, logger)
	}
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dev.Close()) }()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infof("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	p := &producer{
		cfg:     cfg,
		imu:     dev.IMU,
		publish: mqttPublisher(client),
		logger:  logger,
	}
	if cfg.RazorReferenceOnStart {
		p.requestReference()
	}

	if cfg.TopicReferenceCmd != "" {
		token := client.Subscribe(cfg.TopicReferenceCmd, 0, func(_ mqtt.Client, _ mqtt.Message) {
			logger.Info("producer: reference capture requested")
			p.requestReference()
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", cfg.TopicReferenceCmd, token.Error())
		}
		logger.Infof("producer: subscribed to %s", cfg.TopicReferenceCmd)
	}

	if cfg.MetricsPort > 0 {
		srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warnf("producer: metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Infof("producer: metrics on %s/metrics", srv.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()
	logger.Info("producer: starting publish loop")

	for {
		select {
		case t := <-ticker.C:
			if err := p.tick(t); err != nil {
				logger.Warnf("producer: %v", err)
			}
		case <-sigCh:
			logger.Info("producer: shutting down")
			return nil
		}
	}
}
