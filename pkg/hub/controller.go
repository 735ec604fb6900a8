package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/config"
	"github.com/fleetware/hub/pkg/hub/websocket"
	"github.com/fleetware/hub/pkg/storage"
)

// DefaultNamespace scopes all hub state until multi-tenant deployments
// carry the namespace in the agent handshake.
const DefaultNamespace = "default"

// Controller owns the hub's shared tables: connection registry, telemetry
// overlay, correlated waiters, remote session broker and policy resolver.
// It is constructed once at process start and injected into every handler
// that needs it; there is no module-level global state.
type Controller struct {
	nc        *nats.Conn
	store     storage.Interface
	namespace string

	registry   *Registry
	overlay    *Overlay
	bridge     *Bridge
	broker     *Broker
	dispatcher *Dispatcher
	resolver   *Resolver

	requestTimeout time.Duration
	idleTimeout    time.Duration
	sweepInterval  time.Duration
	sessionTimeout int
	pingInterval   int
	reconnectDelay int

	stopCh chan struct{}
}

func NewController(nc *nats.Conn, store storage.Interface, cfg *config.Config) *Controller {
	ctrl := &Controller{
		nc:        nc,
		store:     store,
		namespace: DefaultNamespace,

		requestTimeout: 5 * time.Second,
		idleTimeout:    60 * time.Second,
		sweepInterval:  15 * time.Second,
		sessionTimeout: 120,
		pingInterval:   30,
		reconnectDelay: 15,

		stopCh: make(chan struct{}),
	}

	if cfg != nil {
		if cfg.RequestTimeout > 0 {
			ctrl.requestTimeout = time.Duration(cfg.RequestTimeout) * time.Second
		}
		if cfg.RemoteIdleTimeout > 0 {
			ctrl.idleTimeout = time.Duration(cfg.RemoteIdleTimeout) * time.Second
		}
		if cfg.SessionTimeout > 0 {
			ctrl.sessionTimeout = cfg.SessionTimeout
		}
		if cfg.PingInterval > 0 {
			ctrl.pingInterval = cfg.PingInterval
		}
		if cfg.ReconnectDelay > 0 {
			ctrl.reconnectDelay = cfg.ReconnectDelay
		}
	}

	ctrl.registry = NewRegistry(ctrl.handlePresenceChange)
	ctrl.overlay = NewOverlay(ctrl.registry)
	ctrl.bridge = NewBridge()
	ctrl.broker = NewBroker(ctrl)
	ctrl.dispatcher = NewDispatcher(ctrl.registry, ctrl)
	ctrl.resolver = NewResolver(store, ctrl.namespace)

	return ctrl
}

// Members implements GroupResolver for the dispatcher, read through from
// the group store on every fan-out.
func (ctrl *Controller) Members(groupID int32) ([]string, error) {
	return ctrl.store.Groups().Members(groupID)
}

// Subscribe attaches the controller to the internal bus so operator API
// instances can reach it.
func (ctrl *Controller) Subscribe() error {
	if ctrl.nc == nil {
		return fmt.Errorf("controller: connection to nats is missing")
	}

	if _, err := ctrl.nc.QueueSubscribe("fleethub.v1.*.dispatch", "fleethub.v1.queue.dispatch", func(msg *nats.Msg) {
		if err := ctrl.handleDispatchRequest(msg); err != nil {
			log.Error("controller failed to handle dispatch request: ", err.Error())
		}
	}); err != nil {
		return err
	}

	if _, err := ctrl.nc.QueueSubscribe("fleethub.v1.*.request", "fleethub.v1.queue.request", func(msg *nats.Msg) {
		if err := ctrl.handleCorrelatedRequest(msg); err != nil {
			log.Error("controller failed to handle correlated request: ", err.Error())
		}
	}); err != nil {
		return err
	}

	return nil
}

// Start launches the remote session idle sweeper.
func (ctrl *Controller) Start() {
	go ctrl.idleSweeper()
}

// Stop terminates background loops.
func (ctrl *Controller) Stop() {
	close(ctrl.stopCh)
}

func (ctrl *Controller) idleSweeper() {
	ticker := time.NewTicker(ctrl.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, sess := range ctrl.broker.CloseIdle(ctrl.idleTimeout) {
				ctrl.notifySessionStopped(sess)
			}
		case <-ctrl.stopCh:
			return
		}
	}
}

// NewControlChannel creates a control channel on top of the websocket
// driver and starts its workers.
func (ctrl *Controller) NewControlChannel(driver *websocket.Driver) *ControlChannel {
	cc := &ControlChannel{
		ctrl:         ctrl,
		driver:       driver,
		status:       StatusEstablished,
		stopCh:       make(chan struct{}),
		registeredCh: make(chan bool),
		pingCh:       make(chan bool),
	}

	go cc.inboxWorker()

	// Ensure that registration happens within given period.
	go cc.waitForRegistrationOrClose()

	return cc
}

func (ctrl *Controller) replyMessage(replyTo string, rep interface{}) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}

	return ctrl.nc.Publish(replyTo, data)
}
