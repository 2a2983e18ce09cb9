package sensors

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/orientation"
)

type fixedSource struct{ pose orientation.Pose }

func (f fixedSource) Next() (orientation.Pose, error) { return f.pose, nil }

// recordingPort wraps a simulator and remembers every write.
type recordingPort struct {
	*orientation.Simulator
	mu      sync.Mutex
	written strings.Builder
}

func (p *recordingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.written.Write(b)
	p.mu.Unlock()
	return p.Simulator.Write(b)
}

func TestOpenRazor(t *testing.T) {
	sim := orientation.NewSimulator(fixedSource{orientation.Pose{Roll: 10, Pitch: -20, Yaw: 170}}, "YPR")
	port := &recordingPort{Simulator: sim}

	var got serial.OpenOptions
	orig := openPort
	openPort = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		got = opts
		return port, nil
	}
	defer func() { openPort = orig }()

	cfg := config.Default()
	cfg.RazorSerialPort = "/dev/ttyTEST"
	cfg.RazorBaudRate = 115200

	r, err := OpenRazor(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "/dev/ttyTEST", got.PortName)
	assert.Equal(t, uint(115200), got.BaudRate)

	require.NoError(t, r.IMU.Update())
	assert.Equal(t, 340.0, r.IMU.Pitch())
	assert.Equal(t, 170.0, r.IMU.Yaw())

	port.mu.Lock()
	assert.Equal(t, "#ot\r\n#o0\r\n#f\r\n", port.written.String())
	port.mu.Unlock()
}

func TestOpenRazorError(t *testing.T) {
	orig := openPort
	openPort = func(serial.OpenOptions) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}
	defer func() { openPort = orig }()

	_, err := OpenRazor(config.Default(), zaptest.NewLogger(t).Sugar())
	assert.ErrorContains(t, err, "no such device")
}

func TestOpenSimulatedRazor(t *testing.T) {
	r, err := OpenSimulatedRazor(config.Default(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.IMU.CaptureReference())
	assert.Equal(t, r.IMU.FullScale(), r.IMU.Reference())
}
