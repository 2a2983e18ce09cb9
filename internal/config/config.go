// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicIMU          string
	TopicPose         string
	TopicReferenceCmd string

	// Razor IMU serial link
	RazorSerialPort       string
	RazorBaudRate         int
	RazorResponseTimeout  int    // milliseconds, 0 waits forever
	RazorLenientParse     bool   // accept malformed frames like the firmware library did
	RazorSourceName       string // label carried in published samples
	RazorReferenceOnStart bool   // capture the reference on the first producer tick

	// Timing
	IMUSampleInterval  int // milliseconds
	ConsoleLogInterval int // milliseconds

	// HTTP
	WebServerPort int
	MetricsPort   int // producer /metrics listener, 0 disables

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Logging
	LogLevel string
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the values used when a key is
// absent from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "razor-imu-producer",
		MQTTClientIDConsole:  "razor-imu-console",
		MQTTClientIDWeb:      "razor-imu-web",
		MQTTClientIDDisplay:  "razor-imu-display",

		TopicIMU:          "razor/imu",
		TopicPose:         "razor/pose",
		TopicReferenceCmd: "razor/reference/set",

		RazorSerialPort:       "/dev/ttyUSB0",
		RazorBaudRate:         57600,
		RazorResponseTimeout:  1000,
		RazorSourceName:       "razor",
		RazorReferenceOnStart: true,

		IMUSampleInterval:  50,
		ConsoleLogInterval: 1000,

		WebServerPort: 8080,
		MetricsPort:   9100,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,

		LogLevel: "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_REFERENCE_CMD":
		c.TopicReferenceCmd = value

	// Razor
	case "RAZOR_SERIAL_PORT":
		c.RazorSerialPort = value
	case "RAZOR_BAUD_RATE":
		c.RazorBaudRate, err = parseInt(key, value)
	case "RAZOR_RESPONSE_TIMEOUT":
		c.RazorResponseTimeout, err = parseInt(key, value)
		if err == nil && c.RazorResponseTimeout < 0 {
			return fmt.Errorf("RAZOR_RESPONSE_TIMEOUT must be >= 0, got %d", c.RazorResponseTimeout)
		}
	case "RAZOR_LENIENT_PARSE":
		c.RazorLenientParse, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RAZOR_LENIENT_PARSE %q: %w", value, err)
		}
	case "RAZOR_SOURCE_NAME":
		c.RazorSourceName = value
	case "RAZOR_REFERENCE_ON_START":
		c.RazorReferenceOnStart, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RAZOR_REFERENCE_ON_START %q: %w", value, err)
		}

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// HTTP
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "METRICS_PORT":
		c.MetricsPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// Validate checks that all required fields are set. Callers that change a
// loaded Config must call it again.
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.RazorSerialPort == "" {
		return fmt.Errorf("RAZOR_SERIAL_PORT is required")
	}
	if c.RazorBaudRate <= 0 {
		return fmt.Errorf("RAZOR_BAUD_RATE must be positive, got %d", c.RazorBaudRate)
	}
	if c.RazorResponseTimeout < 0 {
		return fmt.Errorf("RAZOR_RESPONSE_TIMEOUT must be >= 0, got %d", c.RazorResponseTimeout)
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive, got %d", c.IMUSampleInterval)
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.TopicIMU == "" || c.TopicPose == "" {
		return fmt.Errorf("TOPIC_IMU and TOPIC_POSE are required")
	}
	return nil
}

// ResponseTimeout returns RAZOR_RESPONSE_TIMEOUT as a duration.
func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.RazorResponseTimeout) * time.Millisecond
}

// SampleInterval returns IMU_SAMPLE_INTERVAL as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.IMUSampleInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
