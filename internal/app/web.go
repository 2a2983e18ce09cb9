package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/razor_imu/internal/config"
	"github.com/relabs-tech/razor_imu/internal/imu"
	"github.com/relabs-tech/razor_imu/internal/metrics"
	"github.com/relabs-tech/razor_imu/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = time.Second

// webState keeps the latest sample and the connected websocket clients.
type webState struct {
	logger *zap.SugaredLogger
	// requestReference asks the producer for a new reference.
	requestReference func() error

	mu         sync.RWMutex
	lastSample imu.Sample
	haveSample bool

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

func newWebState(logger *zap.SugaredLogger, requestReference func() error) *webState {
	return &webState{
		logger:           logger,
		requestReference: requestReference,
		conns:            make(map[*websocket.Conn]struct{}),
	}
}

// update stores s and pushes it to every websocket client.
func (w *webState) update(s imu.Sample) {
	w.mu.Lock()
	w.lastSample = s
	w.haveSample = true
	w.mu.Unlock()

	w.connMu.Lock()
	defer w.connMu.Unlock()
	for conn := range w.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(s); err != nil {
			w.logger.Debugf("web: dropping websocket client: %v", err)
			conn.Close()
			delete(w.conns, conn)
		}
	}
}

func (w *webState) latest() (imu.Sample, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastSample, w.haveSample
}

func (w *webState) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", w.handleOrientation)
	mux.HandleFunc("/api/sample", w.handleSample)
	mux.HandleFunc("/api/reference", w.handleReference)
	mux.HandleFunc("/ws/orientation", w.handleWS)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func (w *webState) writeJSON(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		w.logger.Warnf("web: json encode error: %v", err)
	}
}

func (w *webState) handleOrientation(rw http.ResponseWriter, r *http.Request) {
	s, ok := w.latest()
	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.writeJSON(rw, orientation.Pose{Roll: s.FullScale.Roll, Pitch: s.FullScale.Pitch, Yaw: s.FullScale.Yaw})
}

func (w *webState) handleSample(rw http.ResponseWriter, r *http.Request) {
	s, ok := w.latest()
	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.writeJSON(rw, s)
}

func (w *webState) handleReference(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := w.requestReference(); err != nil {
		http.Error(rw, err.Error(), http.StatusBadGateway)
		return
	}
	rw.WriteHeader(http.StatusAccepted)
}

func (w *webState) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warnf("web: websocket upgrade error: %v", err)
		return
	}

	w.connMu.Lock()
	w.conns[conn] = struct{}{}
	if s, ok := w.latest(); ok {
		_ = conn.WriteJSON(s)
	}
	w.connMu.Unlock()

	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	w.connMu.Lock()
	delete(w.conns, conn)
	w.connMu.Unlock()
	conn.Close()
}

// RunWeb serves the latest Razor sample over HTTP and websocket.
func RunWeb(cfg *config.Config, logger *zap.SugaredLogger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infof("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	state := newWebState(logger, func() error {
		if cfg.TopicReferenceCmd == "" {
			return fmt.Errorf("TOPIC_REFERENCE_CMD not configured")
		}
		// not retained, or every producer restart would recapture
		token := client.Publish(cfg.TopicReferenceCmd, 0, false, []byte("{}"))
		token.Wait()
		return token.Error()
	})

	token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			logger.Warnf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		state.update(s)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Infof("web: subscribed to MQTT topic %s", cfg.TopicIMU)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	logger.Infof("web: server listening on %s", addr)
	return http.ListenAndServe(addr, state.routes())
}
