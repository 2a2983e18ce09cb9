package app

import (
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// addrBus sends every transaction to addr. The ssd1306 driver always talks
// to 0x3C; modules strapped to 0x3D need the rewrite.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b *addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// DisplayData holds the latest sample for the OLED.
type DisplayData struct {
	mu         sync.RWMutex
	sample     imu.Sample
	haveSample bool
}

func (d *DisplayData) set(s imu.Sample) {
	d.mu.Lock()
	d.sample = s
	d.haveSample = true
	d.mu.Unlock()
}

func (d *DisplayData) snapshot() (imu.Sample, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sample, d.haveSample
}

// RunDisplay shows the latest full-scale and relative angles on an SSD1306.
func RunDisplay(cfg *config.Config, logger *zap.SugaredLogger) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	logger.Infof("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		logger.Warnf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infof("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			logger.Warnf("display: sample unmarshal error: %v", err)
			return
		}
		data.set(s)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Infof("display: subscribed to %s", cfg.TopicIMU)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info("display: starting update loop")

	for range ticker.C {
		s, ok := data.snapshot()
		if err := dev.Draw(dev.Bounds(), renderSample(s, ok), image.Point{}); err != nil {
			logger.Warnf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderSample draws full-scale angles on the left and angles relative to
// the reference on the right.
func renderSample(s imu.Sample, haveData bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !haveData {
		drawLine(d, 0, 26, "Razor IMU")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	drawLine(d, 0, 13, "    FULL   REL")
	drawLine(d, 0, 26, fmt.Sprintf("R %6.1f %6.1f", s.FullScale.Roll, s.Relative.Roll))
	drawLine(d, 0, 39, fmt.Sprintf("P %6.1f %6.1f", s.FullScale.Pitch, s.Relative.Pitch))
	drawLine(d, 0, 52, fmt.Sprintf("Y %6.1f %6.1f", s.FullScale.Yaw, s.Relative.Yaw))
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Razor 9DOF")
	drawLine(d, 5, 43, "Waiting for")
	drawLine(d, 25, 56, "producer")
	return img
}
