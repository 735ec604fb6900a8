package hub

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/proto"
	"github.com/fleetware/hub/pkg/hub/websocket"
	"github.com/fleetware/hub/pkg/model"
)

type Status int

const (
	StatusEstablished Status = iota
	StatusRegistered
)

// registrationTimeout bounds how long a connection may stay silent before
// saying hello.
const registrationTimeout = 10 * time.Second

// maxProtocolViolations is the number of consecutive malformed frames
// tolerated before the connection is terminated. A single bad frame is
// logged and dropped.
const maxProtocolViolations = 5

// ControlChannel is the per-connection protocol state machine. It reads
// frames from the websocket driver's inbox, feeds them to the controller
// and writes responses to the outbox. It implements Conn so the registry
// can hand it to the dispatcher and broker.
type ControlChannel struct {
	sync.RWMutex
	ctrl   *Controller
	driver *websocket.Driver

	status         Status
	endpointID     string
	kind           model.Kind
	generation     uint64
	sessionTimeout int
	lastMessageAt  time.Time
	violations     int

	stopCh       chan struct{}
	stopOnce     sync.Once
	registeredCh chan bool
	pingCh       chan bool
}

// Close is called when the websocket handler method is exiting, e.g. the
// connection is closed. It stops the worker goroutines and unregisters
// the channel; the unregister is a no-op if a newer connection has
// already replaced this one.
func (cc *ControlChannel) Close() {
	cc.stopOnce.Do(func() {
		close(cc.stopCh)
	})
	cc.ctrl.UnregisterEndpoint(cc)
}

// EndpointID implements Conn.
func (cc *ControlChannel) EndpointID() string {
	cc.RLock()
	defer cc.RUnlock()
	return cc.endpointID
}

// Send implements Conn. It hands serialized data to the write queue and
// never blocks.
func (cc *ControlChannel) Send(data []byte) error {
	if !cc.pushBackMessage(websocket.FlagContinue, data) {
		return ErrOutboxFull
	}
	return nil
}

// Open implements Conn.
func (cc *ControlChannel) Open() bool {
	cc.RLock()
	defer cc.RUnlock()
	if cc.status != StatusRegistered {
		return false
	}

	select {
	case <-cc.stopCh:
		return false
	default:
		return true
	}
}

// Shutdown implements Conn. The registry calls it on the replaced handle
// when a new connection registers for the same endpoint id.
func (cc *ControlChannel) Shutdown() {
	cc.driver.Stop()
}

func (cc *ControlChannel) inboxWorker() {
	for {
		select {
		case msg := <-cc.driver.Inbox:
			cc.HandleMessage(msg.Data)
		case <-cc.stopCh:
			return
		}
	}
}

// HandleMessage processes one inbound frame. A frame that fails to parse
// is dropped; only repeated protocol violations terminate the channel.
func (cc *ControlChannel) HandleMessage(data []byte) {
	msgType, msg, err := proto.UnmarshalMessage(data)
	if err != nil {
		cc.Lock()
		cc.violations++
		violations := cc.violations
		cc.Unlock()

		log.Warnf("controlchannel dropped malformed frame (%d/%d): %s",
			violations, maxProtocolViolations, err.Error())

		if violations >= maxProtocolViolations {
			cc.terminateAndLog("too many protocol violations")
		}
		return
	}

	cc.Lock()
	cc.violations = 0
	cc.lastMessageAt = time.Now().Round(time.Second).UTC()
	cc.Unlock()

	switch msgType {
	case proto.MessageTypeHello:
		cc.handleMessage(msg, cc.helloHandler())
	case proto.MessageTypePing:
		cc.handleMessage(msg, cc.ensureRegistered(cc.keepAliveHandler()))
	case proto.MessageTypeDeviceStatus, proto.MessageTypeComputerStatus:
		cc.handleMessage(msg, cc.ensureRegistered(cc.statusHandler()))
	case proto.MessageTypeLocationUpdate:
		cc.handleMessage(msg, cc.ensureRegistered(cc.locationHandler()))
	case proto.MessageTypeSupportMessage:
		cc.handleMessage(msg, cc.ensureRegistered(cc.supportHandler()))
	case proto.MessageTypeRemoteAccessInfo:
		cc.handleMessage(msg, cc.ensureRegistered(cc.replyHandler()))
	case proto.MessageTypeRemoteDesktopAck:
		cc.handleMessage(msg, cc.ensureRegistered(cc.ackHandler()))
	case proto.MessageTypeRemoteFrame:
		cc.handleMessage(msg, cc.ensureRegistered(cc.frameHandler()))
	default:
		cc.terminateAndLog("unhandled message")
	}
}

// AdmitRegistration is called by the controller after successful
// registration. It sets the values needed for running the channel and
// starts the keep alive handling in the background.
func (cc *ControlChannel) AdmitRegistration(generation uint64, endpointID string, kind model.Kind, sessionTimeout int) {
	cc.Lock()
	cc.status = StatusRegistered
	cc.generation = generation
	cc.endpointID = endpointID
	cc.kind = kind
	cc.sessionTimeout = sessionTimeout
	cc.Unlock()

	// If the client doesn't ping within the session timeout the
	// connection is closed.
	go cc.waitForPingOrClose()

	log.Infof("controlchannel registered successful for endpoint '%s'", endpointID)
}

func (cc *ControlChannel) waitForRegistrationOrClose() {
	select {
	case <-cc.registeredCh:
		return
	case <-cc.stopCh:
		return
	case <-time.After(registrationTimeout):
		log.Warn("controlchannel registration timed out, terminating the connection")
		cc.driver.Stop()
	}
}

func (cc *ControlChannel) waitForPingOrClose() {
	for {
		select {
		case <-cc.pingCh:
			// Reset the timeout only, the loop continues.
		case <-cc.stopCh:
			return
		case <-time.After(time.Duration(cc.sessionTimeout) * time.Second):
			log.Warnf("controlchannel session timed out for endpoint '%s'", cc.EndpointID())
			cc.driver.Stop()
			return
		}
	}
}

// messageHandler is a tooling for handling incoming messages, similar to
// the go http handler implementation. It allows middleware handlers like
// ensureRegistered.
type messageHandler interface {
	Handle(msg interface{})
}

type messageHandlerFunc func(msg interface{})

func (f messageHandlerFunc) Handle(msg interface{}) {
	f(msg)
}

func (cc *ControlChannel) handleMessage(msg interface{}, h messageHandler) {
	h.Handle(msg)
}

func (cc *ControlChannel) ensureRegistered(next messageHandler) messageHandler {
	return messageHandlerFunc(func(msg interface{}) {
		cc.RLock()
		registered := cc.status == StatusRegistered
		cc.RUnlock()

		if !registered {
			cc.terminateAndLog("controlchannel is not registered")
			return
		}
		next.Handle(msg)
	})
}

func (cc *ControlChannel) helloHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		helloMsg, ok := msg.(proto.HelloMessage)
		if !ok {
			cc.terminateAndLog("hello message expected")
			return
		}

		// Notify waitForRegistrationOrClose that registration is in
		// progress so it doesn't close the connection underneath us.
		select {
		case cc.registeredCh <- true:
		default:
		}

		policy, err := cc.ctrl.RegisterEndpoint(cc, helloMsg)
		if err != nil && proto.IsRegistrationError(err) {
			log.Warnf("controlchannel rejected for endpoint '%s'", helloMsg.EndpointID)
			e := err.(*proto.RegistrationError)
			cc.abortMessageAndClose(e.Reason, e.Message)
			return
		} else if err != nil {
			log.Errorf("controlchannel registration failed: %s", err.Error())
			cc.terminateAndLog("could not register controlchannel")
			return
		}

		cc.welcomeMessage(policy)
	})
}

func (cc *ControlChannel) keepAliveHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		// Notify waitForPingOrClose so the session timeout is reset.
		go func() {
			select {
			case cc.pingCh <- true:
			case <-cc.stopCh:
			}
		}()

		cc.pongMessage()
	})
}

func (cc *ControlChannel) statusHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		statusMsg, ok := msg.(proto.StatusMessage)
		if !ok {
			cc.terminateAndLog("status message expected")
			return
		}

		cc.RLock()
		endpointID, generation := cc.endpointID, cc.generation
		cc.RUnlock()

		cc.ctrl.HandleStatus(endpointID, generation, statusMsg)
	})
}

func (cc *ControlChannel) locationHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		locationMsg, ok := msg.(proto.LocationMessage)
		if !ok {
			cc.terminateAndLog("location message expected")
			return
		}

		cc.RLock()
		endpointID, generation := cc.endpointID, cc.generation
		cc.RUnlock()

		cc.ctrl.HandleLocation(endpointID, generation, locationMsg)
	})
}

func (cc *ControlChannel) supportHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		supportMsg, ok := msg.(proto.SupportMessage)
		if !ok {
			cc.terminateAndLog("support message expected")
			return
		}

		if err := cc.ctrl.RecordSupportMessage(cc.EndpointID(), supportMsg.Text); err != nil {
			log.Errorf("controlchannel failed to record support message: %s", err.Error())
		}
	})
}

func (cc *ControlChannel) replyHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		replyMsg, ok := msg.(proto.ReplyMessage)
		if !ok {
			cc.terminateAndLog("reply message expected")
			return
		}

		cc.ctrl.HandleReply(cc.EndpointID(), replyMsg)
	})
}

func (cc *ControlChannel) ackHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		ackMsg, ok := msg.(proto.AckMessage)
		if !ok {
			cc.terminateAndLog("ack message expected")
			return
		}

		if err := cc.ctrl.broker.Ack(ackMsg.SessionID); err != nil {
			log.Warnf("controlchannel dropped ack for unknown session '%s'", ackMsg.SessionID)
		}
	})
}

func (cc *ControlChannel) frameHandler() messageHandlerFunc {
	return messageHandlerFunc(func(msg interface{}) {
		frameMsg, ok := msg.(proto.FrameMessage)
		if !ok {
			cc.terminateAndLog("frame message expected")
			return
		}

		if err := cc.ctrl.broker.HandleFrame(cc.EndpointID(), frameMsg.SessionID, frameMsg.Data); err != nil {
			log.Warnf("controlchannel dropped frame for session '%s': %s",
				frameMsg.SessionID, err.Error())
		}
	})
}

func (cc *ControlChannel) terminateAndLog(message string) {
	log.Errorf("controlchannel terminates with message: %s", message)
	cc.pushBackMessage(websocket.FlagTerminate, nil)
}

func (cc *ControlChannel) abortMessageAndClose(reason proto.ErrorReason, details interface{}) {
	out, err := proto.MarshalNewAbortMessage(reason, details)
	// This error should never happen. If it does, terminate the session
	// for safety.
	if err != nil {
		cc.terminateAndLog("could not marshal message")
		return
	}
	cc.pushBackMessage(websocket.FlagCloseGracefully, out)
}

func (cc *ControlChannel) welcomeMessage(policy *EffectivePolicy) {
	cc.RLock()
	sessionTimeout := cc.sessionTimeout
	cc.RUnlock()

	out, err := proto.MarshalNewWelcomeMessage(sessionTimeout, cc.ctrl.pingInterval,
		cc.ctrl.reconnectDelay, policy)
	if err != nil {
		cc.terminateAndLog("could not marshal message")
		return
	}
	cc.pushBackMessage(websocket.FlagContinue, out)
}

func (cc *ControlChannel) pongMessage() {
	out, err := proto.MarshalNewPongMessage()
	if err != nil {
		cc.terminateAndLog("could not marshal message")
		return
	}
	cc.pushBackMessage(websocket.FlagContinue, out)
}

func (cc *ControlChannel) pushBackMessage(flag websocket.Flag, data []byte) bool {
	select {
	case cc.driver.Outbox <- websocket.NewOutboxMessage(flag, data):
		return true
	default:
		return false // Buffer is full
	}
}
