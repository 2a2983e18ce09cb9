package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/orientation"
)

func printSample(w io.Writer, s imu.Sample) {
	fmt.Fprintf(w,
		"[IMU ]  %-8s full R=%6.2f P=%6.2f Y=%6.2f  raw R=%7.2f P=%7.2f Y=%7.2f  rel R=%6.2f P=%6.2f Y=%6.2f\n",
		s.Source,
		s.FullScale.Roll, s.FullScale.Pitch, s.FullScale.Yaw,
		s.Raw.Roll, s.Raw.Pitch, s.Raw.Yaw,
		s.Relative.Roll, s.Relative.Pitch, s.Relative.Yaw,
	)
}

func printPose(w io.Writer, p orientation.Pose) {
	fmt.Fprintf(w, "[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n", p.Roll, p.Pitch, p.Yaw)
}

// RunConsoleMQTT prints every sample and pose published by the producer.
func RunConsoleMQTT(cfg *config.Config, logger *zap.SugaredLogger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	logger.Infof("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	imuToken := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			logger.Warnf("console: sample unmarshal error: %v", err)
			return
		}
		printSample(os.Stdout, s)
	})
	imuToken.Wait()
	if imuToken.Error() != nil {
		return imuToken.Error()
	}
	logger.Infof("console: subscribed to %s", cfg.TopicIMU)

	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			logger.Warnf("console: pose unmarshal error: %v", err)
			return
		}
		printPose(os.Stdout, p)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	logger.Infof("console: subscribed to %s", cfg.TopicPose)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("console: shutting down")
	client.Disconnect(250)
	return nil
}
