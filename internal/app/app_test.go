package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/orientation"
	"github.com/relabs-tech/razor_imu/internal/razor"
)

type poseList struct {
	poses []orientation.Pose
}

func (p *poseList) Next() (orientation.Pose, error) {
	pose := p.poses[0]
	if len(p.poses) > 1 {
		p.poses = p.poses[1:]
	}
	return pose, nil
}

type published struct {
	topic   string
	payload []byte
}

func newTestProducer(t *testing.T, poses ...orientation.Pose) (*producer, *[]published) {
	sim := orientation.NewSimulator(&poseList{poses: poses}, "YPR")
	ch := razor.NewStreamChannel(sim, time.Second)
	t.Cleanup(func() {
		sim.Close()
		ch.Close()
	})

	var out []published
	p := &producer{
		cfg:    config.Default(),
		imu:    razor.New(ch),
		logger: zaptest.NewLogger(t).Sugar(),
		publish: func(topic string, payload []byte) error {
			out = append(out, published{topic: topic, payload: payload})
			return nil
		},
	}
	return p, &out
}

func TestProducerTick(t *testing.T) {
	p, out := newTestProducer(t,
		orientation.Pose{Roll: -30, Pitch: 20, Yaw: -10},
		orientation.Pose{Roll: -20, Pitch: 30, Yaw: 0},
	)
	p.requestReference()

	ts := time.Now()
	require.NoError(t, p.tick(ts))
	require.Len(t, *out, 2)
	assert.Equal(t, "razor/imu", (*out)[0].topic)
	assert.Equal(t, "razor/pose", (*out)[1].topic)

	var s imu.Sample
	require.NoError(t, json.Unmarshal((*out)[0].payload, &s))
	assert.Equal(t, imu.Angles{Pitch: 20, Roll: 330, Yaw: 350}, s.FullScale)
	assert.Equal(t, s.FullScale, s.Reference)

	require.NoError(t, p.tick(ts.Add(time.Second)))
	require.Len(t, *out, 4)
	require.NoError(t, json.Unmarshal((*out)[2].payload, &s))
	assert.Equal(t, imu.Angles{Pitch: 20, Roll: 330, Yaw: 350}, s.Reference)
	assert.Equal(t, imu.Angles{Pitch: 10, Roll: 10, Yaw: 10}, s.Relative)

	var pose orientation.Pose
	require.NoError(t, json.Unmarshal((*out)[3].payload, &pose))
	assert.Equal(t, orientation.Pose{Roll: 340, Pitch: 30, Yaw: 0}, pose)
}

func TestProducerTickPublishError(t *testing.T) {
	p, _ := newTestProducer(t, orientation.Pose{})
	p.publish = func(string, []byte) error { return errors.New("broker gone") }

	err := p.tick(time.Now())
	assert.ErrorContains(t, err, "broker gone")
}

func TestWebHandlers(t *testing.T) {
	var requested atomic.Int32
	state := newWebState(zaptest.NewLogger(t).Sugar(), func() error {
		requested.Add(1)
		return nil
	})
	srv := httptest.NewServer(state.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	state.update(imu.Sample{Source: "razor", FullScale: imu.Angles{Pitch: 1, Roll: 2, Yaw: 3}})

	resp, err = http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	var pose orientation.Pose
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pose))
	resp.Body.Close()
	assert.Equal(t, orientation.Pose{Roll: 2, Pitch: 1, Yaw: 3}, pose)

	resp, err = http.Get(srv.URL + "/api/reference")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/reference", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), requested.Load())
}

func TestWebSocketStream(t *testing.T) {
	state := newWebState(zaptest.NewLogger(t).Sugar(), func() error { return nil })
	srv := httptest.NewServer(state.routes())
	defer srv.Close()

	state.update(imu.Sample{Source: "first"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orientation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var s imu.Sample
	require.NoError(t, conn.ReadJSON(&s))
	assert.Equal(t, "first", s.Source)

	state.update(imu.Sample{Source: "second"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&s))
	assert.Equal(t, "second", s.Source)
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderSample(t *testing.T) {
	waiting := renderSample(imu.Sample{}, false)
	full := renderSample(imu.Sample{FullScale: imu.Angles{Roll: 123.4, Pitch: 56.7, Yaw: 359.9}}, true)

	assert.Greater(t, litPixels(waiting), 0)
	assert.Greater(t, litPixels(full), litPixels(waiting))
	assert.Greater(t, litPixels(renderSplash()), 0)
}

type recordingBus struct {
	addrs []uint16
}

func (b *recordingBus) String() string { return "recording" }

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func (b *recordingBus) SetSpeed(physic.Frequency) error { return nil }

func TestAddrBusRewritesAddress(t *testing.T) {
	rec := &recordingBus{}
	bus := &addrBus{Bus: rec, addr: 0x3D}

	require.NoError(t, bus.Tx(0x3C, []byte{0x00}, nil))
	require.NoError(t, bus.Tx(0x3C, []byte{0x40}, nil))
	assert.Equal(t, []uint16{0x3D, 0x3D}, rec.addrs)
	assert.Equal(t, "recording", bus.String())
}

func TestMockConsoleUsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RazorSourceName = "bench"
	cfg.IMUSampleInterval = 5
	cfg.RazorLenientParse = true

	stop := make(chan os.Signal, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		stop <- os.Interrupt
	}()

	var out bytes.Buffer
	require.NoError(t, runMockConsole(cfg, zaptest.NewLogger(t).Sugar(), &out, stop))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "bench")
	}
}
