package razor_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

type pipeRW struct {
	io.Reader
	bytes.Buffer
}

func (p *pipeRW) Read(b []byte) (int, error) { return p.Reader.Read(b) }

func TestStreamChannelReadsFrame(t *testing.T) {
	pr, pw := io.Pipe()
	rw := &pipeRW{Reader: pr}
	ch := razor.NewStreamChannel(rw, time.Second)
	defer ch.Close()

	require.NoError(t, ch.WriteLine(razor.PollCommand))
	assert.Equal(t, "#f\r\n", rw.Buffer.String())

	go func() {
		_, _ = pw.Write([]byte("#YPR=1.5,"))
		_, _ = pw.Write([]byte("-2,3\r\n"))
	}()

	require.Equal(t, razor.WaitReady, ch.Wait(time.Second))
	b, err := ch.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('#'), b)

	header, err := ch.ReadUntil('=')
	require.NoError(t, err)
	assert.Equal(t, "YPR", header)

	body, err := ch.ReadUntil('\n')
	require.NoError(t, err)
	assert.Equal(t, "1.5,-2,3\r", body)
}

func TestStreamChannelTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ch := razor.NewStreamChannel(&pipeRW{Reader: pr}, 20*time.Millisecond)
	defer ch.Close()

	assert.Equal(t, razor.WaitTimeout, ch.Wait(10*time.Millisecond))

	_, err := ch.ReadByte()
	assert.ErrorIs(t, err, razor.ErrTimeout)
}

func TestStreamChannelClosed(t *testing.T) {
	pr, pw := io.Pipe()
	ch := razor.NewStreamChannel(&pipeRW{Reader: pr}, time.Second)
	defer ch.Close()

	go func() {
		_, _ = pw.Write([]byte("#YP"))
		_ = pw.Close()
	}()

	s, err := ch.ReadUntil('=')
	assert.ErrorIs(t, err, razor.ErrChannelClosed)
	assert.Equal(t, "#YP", s)
	assert.Equal(t, razor.WaitClosed, ch.Wait(time.Second))
}

func TestIMUOverStreamChannel(t *testing.T) {
	pr, pw := io.Pipe()
	rw := &pipeRW{Reader: pr}
	ch := razor.NewStreamChannel(rw, time.Second)
	defer ch.Close()
	go func() { _, _ = pw.Write([]byte("#YPR=-90.00,45.50,-0.50\r\n")) }()

	imu := razor.New(ch, razor.WithTimeout(time.Second))
	require.NoError(t, imu.Update())

	assert.Equal(t, 270.0, imu.Yaw())
	assert.Equal(t, 45.5, imu.Pitch())
	assert.Equal(t, 359.5, imu.Roll())
	assert.Equal(t, "#f\r\n", rw.Buffer.String())
}

func TestStreamChannelDiscard(t *testing.T) {
	pr, pw := io.Pipe()
	ch := razor.NewStreamChannel(&pipeRW{Reader: pr}, time.Second)
	defer ch.Close()

	go func() { _, _ = pw.Write([]byte("#YPR=1,2,3\r\n")) }()
	require.Equal(t, razor.WaitReady, ch.Wait(time.Second))

	assert.Equal(t, 12, ch.Discard())
	assert.Equal(t, 0, ch.Discard())
	assert.Equal(t, razor.WaitTimeout, ch.Wait(10*time.Millisecond))

	require.NoError(t, pw.Close())
	assert.Equal(t, razor.WaitClosed, ch.Wait(time.Second))
}

// pollDevice is the device end of a serial line. Each poll command written
// to it is signalled on polls; replies are written by the test through the
// pipe.
type pollDevice struct {
	*io.PipeReader
	polls chan struct{}
}

func (d *pollDevice) Write(p []byte) (int, error) {
	if strings.TrimSpace(string(p)) == razor.PollCommand {
		d.polls <- struct{}{}
	}
	return len(p), nil
}

func newPollDevice(t *testing.T) (*pollDevice, *io.PipeWriter, *razor.StreamChannel) {
	t.Helper()
	pr, pw := io.Pipe()
	dev := &pollDevice{PipeReader: pr, polls: make(chan struct{}, 8)}
	ch := razor.NewStreamChannel(dev, 50*time.Millisecond)
	t.Cleanup(func() {
		ch.Close()
		pw.Close()
	})
	return dev, pw, ch
}

// answer replies to the next poll with line.
func answer(dev *pollDevice, pw *io.PipeWriter, line string) {
	go func() {
		<-dev.polls
		_, _ = pw.Write([]byte(line))
	}()
}

func TestLateReplyIsNotUsedForNextPoll(t *testing.T) {
	dev, pw, ch := newPollDevice(t)
	imu := razor.New(ch, razor.WithTimeout(50*time.Millisecond))

	// First poll goes unanswered in time.
	assert.ErrorIs(t, imu.Update(), razor.ErrTimeout)
	<-dev.polls

	// Its reply shows up afterwards and sits in the channel.
	go func() { _, _ = pw.Write([]byte("#YPR=1.00,0.00,0.00\r\n")) }()
	require.Equal(t, razor.WaitReady, ch.Wait(time.Second))

	for _, yaw := range []float64{2, 3, 4} {
		answer(dev, pw, fmt.Sprintf("#YPR=%.2f,0.00,0.00\r\n", yaw))
		require.NoError(t, imu.Update())
		assert.Equal(t, yaw, imu.Yaw())
	}
}

func TestTruncatedFrameDoesNotLeakIntoNextPoll(t *testing.T) {
	for _, partial := range []string{"#YP", "#YPR=5.00,"} {
		t.Run(partial, func(t *testing.T) {
			dev, pw, ch := newPollDevice(t)
			imu := razor.New(ch, razor.WithTimeout(time.Second))

			answer(dev, pw, "#YPR=10.00,20.00,30.00\r\n")
			require.NoError(t, imu.Update())

			// The device stalls mid frame.
			answer(dev, pw, partial)
			assert.ErrorIs(t, imu.Update(), razor.ErrTimeout)
			assert.Equal(t, razor.Vector{20, 30, 10}, imu.Raw())

			// The rest of that frame arrives late.
			go func() { _, _ = pw.Write([]byte("6.00,7.00\r\n")) }()
			require.Equal(t, razor.WaitReady, ch.Wait(time.Second))

			answer(dev, pw, "#YPR=-8.00,9.00,11.00\r\n")
			require.NoError(t, imu.Update())
			assert.Equal(t, razor.Vector{9, 11, -8}, imu.Raw())
			assert.Equal(t, 352.0, imu.Yaw())
		})
	}
}
