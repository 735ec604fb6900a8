package hub

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/proto"
	"github.com/fleetware/hub/pkg/model"
)

// LiveEndpoint is one row of the operator's fleet view: inventory
// baseline with the live overlay and connection state on top.
type LiveEndpoint struct {
	EndpointID  string          `json:"endpoint_id"`
	Kind        model.Kind      `json:"kind"`
	Connected   bool            `json:"connected"`
	ConnectedAt time.Time       `json:"connected_at,omitempty"`
	LastSeenAt  time.Time       `json:"last_seen_at,omitempty"`
	Model       string          `json:"model,omitempty"`
	OSVersion   string          `json:"os_version,omitempty"`
	Compliant   bool            `json:"compliant"`
	Telemetry   model.Telemetry `json:"telemetry"`
}

// ListLiveEndpoints merges the persisted inventory with the registry's
// presence snapshot and the telemetry overlay.
func (ctrl *Controller) ListLiveEndpoints() ([]LiveEndpoint, error) {
	endpoints, err := ctrl.store.Endpoints().FetchAll(ctrl.namespace)
	if err != nil {
		return nil, err
	}

	presence := make(map[string]PresenceInfo)
	for _, info := range ctrl.registry.SnapshotAll() {
		presence[info.EndpointID] = info
	}

	list := make([]LiveEndpoint, 0, len(endpoints))
	for id, ep := range endpoints {
		row := LiveEndpoint{
			EndpointID: id,
			Kind:       ep.Kind,
			LastSeenAt: ep.LastSeenAt,
			Model:      ep.Model,
			OSVersion:  ep.OSVersion,
			Compliant:  ep.Compliant,
			Telemetry:  ctrl.overlay.Read(id, ep.Telemetry),
		}
		if info, ok := presence[id]; ok {
			row.Connected = true
			row.ConnectedAt = info.ConnectedAt
		}
		list = append(list, row)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].EndpointID < list[j].EndpointID
	})

	return list, nil
}

// DispatchCommand routes a command to one endpoint, to all endpoints
// (message.TargetAll) or, when groupID is set, to the group's current
// members. The per-id result map reports partial success; it is never
// collapsed into a single boolean.
func (ctrl *Controller) DispatchCommand(target string, groupID int32, command string, params map[string]interface{}) (map[string]error, error) {
	env := proto.NewEnvelope(proto.CommandType(command), params)

	if groupID != 0 {
		return ctrl.dispatcher.SendGroup(groupID, env)
	}

	return ctrl.dispatcher.Send(target, env)
}

// RequestWithReply sends a command and suspends the caller until the
// endpoint's reply of replyType arrives or the timeout elapses. On
// timeout the caller-supplied fallback is returned with timedOut true;
// with a nil fallback the call fails with ErrRequestTimeout instead.
// Only one outstanding waiter per (endpoint, reply type) is honored; a
// concurrent second request displaces the first's listener.
func (ctrl *Controller) RequestWithReply(endpointID, command, replyType string,
	params map[string]interface{}, timeout time.Duration,
	fallback interface{}) (interface{}, bool, error) {

	if timeout <= 0 {
		timeout = ctrl.requestTimeout
	}

	replyCh := ctrl.bridge.Await(endpointID, replyType)

	results, err := ctrl.dispatcher.Send(endpointID, proto.NewEnvelope(proto.CommandType(command), params))
	if err != nil {
		ctrl.bridge.Cancel(endpointID, replyType, replyCh)
		return nil, false, err
	}
	if sendErr := results[endpointID]; sendErr != nil {
		ctrl.bridge.Cancel(endpointID, replyType, replyCh)
		return nil, false, sendErr
	}

	select {
	case payload := <-replyCh:
		return payload, false, nil
	case <-time.After(timeout):
		ctrl.bridge.Cancel(endpointID, replyType, replyCh)
		if fallback == nil {
			return nil, true, ErrRequestTimeout
		}
		return fallback, true, nil
	}
}

// StartRemoteSession creates a remote desktop session for the endpoint
// and asks the agent to begin streaming. At most one session per endpoint
// may be pending or active.
func (ctrl *Controller) StartRemoteSession(endpointID, operatorConnID string) (RemoteSession, error) {
	conn, ok := ctrl.registry.Lookup(endpointID)
	if !ok || !conn.Open() {
		return RemoteSession{}, ErrEndpointOffline
	}

	sess, err := ctrl.broker.Start(endpointID, operatorConnID)
	if err != nil {
		return RemoteSession{}, err
	}

	env := proto.NewEnvelope(proto.CommandStartRemoteDesktop, nil)
	env.SessionID = sess.ID
	data, err := env.Marshal()
	if err == nil {
		err = conn.Send(data)
	}
	if err != nil {
		ctrl.broker.Stop(sess.ID)
		return RemoteSession{}, err
	}

	return sess, nil
}

// StopRemoteSession closes the session and tells the endpoint to stop
// streaming.
func (ctrl *Controller) StopRemoteSession(sessionID string) error {
	sess, err := ctrl.broker.Stop(sessionID)
	if err != nil {
		return err
	}

	ctrl.notifySessionStopped(sess)
	return nil
}

// OperatorDisconnected tears down every session the operator connection
// owned.
func (ctrl *Controller) OperatorDisconnected(operatorConnID string) {
	for _, sess := range ctrl.broker.OperatorDisconnected(operatorConnID) {
		ctrl.notifySessionStopped(sess)
	}
}

// RelayInputEvent forwards an operator input event into an active remote
// session, tagged with the session id.
func (ctrl *Controller) RelayInputEvent(sessionID string, eventType proto.CommandType, params map[string]interface{}) error {
	if !proto.InputEventTypes[eventType] {
		return ErrInvalidInputEvent
	}

	sess, err := ctrl.broker.Touch(sessionID)
	if err != nil {
		return err
	}

	conn, ok := ctrl.registry.Lookup(sess.EndpointID)
	if !ok || !conn.Open() {
		return ErrEndpointOffline
	}

	env := proto.NewEnvelope(eventType, params)
	env.SessionID = sess.ID
	data, err := env.Marshal()
	if err != nil {
		return err
	}

	return conn.Send(data)
}

// RemoteSessionInfo returns a snapshot of the session.
func (ctrl *Controller) RemoteSessionInfo(sessionID string) (RemoteSession, bool) {
	return ctrl.broker.Get(sessionID)
}

// ForgetEndpoint drops the endpoint's live telemetry record. Called on
// administrative deletion; a plain disconnect keeps the last reported
// values visible until the endpoint reconnects.
func (ctrl *Controller) ForgetEndpoint(endpointID string) {
	ctrl.overlay.Forget(endpointID)
}

// ResolveEffectivePolicy computes the endpoint's effective policy.
func (ctrl *Controller) ResolveEffectivePolicy(endpointID string) (*EffectivePolicy, error) {
	return ctrl.resolver.Resolve(endpointID)
}

// notifySessionStopped tells the endpoint to stop streaming for a closed
// session. An offline endpoint is fine, its agent has nothing to stop.
func (ctrl *Controller) notifySessionStopped(sess RemoteSession) {
	conn, ok := ctrl.registry.Lookup(sess.EndpointID)
	if !ok || !conn.Open() {
		return
	}

	env := proto.NewEnvelope(proto.CommandStopRemoteDesktop, nil)
	env.SessionID = sess.ID
	data, err := env.Marshal()
	if err != nil {
		log.Errorf("controller could not marshal stop message: %v", err)
		return
	}

	if err := conn.Send(data); err != nil {
		log.Warnf("controller could not notify endpoint '%s' about closed session: %v",
			sess.EndpointID, err)
	}
}
