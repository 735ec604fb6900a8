package hub

import (
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/proto"
	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

// RegisterEndpoint admits a control channel after its hello message. If
// no inventory record exists for the endpoint id yet, one is created with
// defaults; the record itself is never deleted by the hub.
func (ctrl *Controller) RegisterEndpoint(cc *ControlChannel, hello proto.HelloMessage) (*EffectivePolicy, error) {
	if hello.Kind != model.KindMobile && hello.Kind != model.KindDesktop {
		return nil, proto.NewRegistrationError(proto.ErrReasonProtocolViolation,
			"endpoint kind must be mobile or desktop")
	}

	ep, err := ctrl.store.Endpoints().FindByEndpointID(ctrl.namespace, hello.EndpointID)
	if err != nil && err != storage.ErrNotFound {
		log.Errorf("controller failed to look up endpoint: %v", err)
		return nil, proto.NewTechnicalExceptionError(err.Error())
	}
	if err == storage.ErrNotFound {
		ep = &model.Endpoint{
			Namespace:      ctrl.namespace,
			EndpointID:     hello.EndpointID,
			Kind:           hello.Kind,
			SessionTimeout: ctrl.sessionTimeout,
			PingInterval:   ctrl.pingInterval,
		}
		if err := ctrl.store.Endpoints().Create(ep); err != nil {
			log.Errorf("controller failed to create endpoint record: %v", err)
			return nil, proto.NewTechnicalExceptionError(err.Error())
		}
		log.Infof("controller created inventory record for new endpoint '%s'", hello.EndpointID)
	}

	// Register replaces and closes any prior connection for this id.
	generation := ctrl.registry.Register(hello.EndpointID, cc)

	sessionTimeout := ep.SessionTimeout
	if sessionTimeout == 0 {
		sessionTimeout = ctrl.sessionTimeout
	}

	cc.AdmitRegistration(generation, hello.EndpointID, hello.Kind, sessionTimeout)

	if err := ctrl.store.Endpoints().UpdateLastSeen(ctrl.namespace, hello.EndpointID); err != nil {
		log.Errorf("controller failed to update endpoint last seen: %v", err)
	}

	log.Infof("controller registered endpoint '%s' (generation %d)", hello.EndpointID, generation)

	// The resolved policy is pushed inside the welcome message. A failed
	// resolution does not reject the connection.
	policy, err := ctrl.resolver.Resolve(hello.EndpointID)
	if err != nil {
		log.Errorf("controller failed to resolve policy for endpoint '%s': %v", hello.EndpointID, err)
		policy = nil
	}

	return policy, nil
}

// UnregisterEndpoint removes the control channel's registration. It is a
// no-op if another connection has replaced this one in the meantime.
func (ctrl *Controller) UnregisterEndpoint(cc *ControlChannel) {
	endpointID := cc.EndpointID()
	if endpointID == "" {
		return // Never completed registration, nothing to undo.
	}

	if !ctrl.registry.Unregister(endpointID, cc) {
		log.Debugf("controller skipped stale unregister for endpoint '%s'", endpointID)
		return
	}

	log.Infof("controller unregistered endpoint '%s'", endpointID)
}

// handlePresenceChange runs on every register/unregister. On disconnect
// the live overlay is folded into the persisted baseline (durable facts
// live in the external store, not the registry) and the endpoint's remote
// session, if any, is torn down.
func (ctrl *Controller) handlePresenceChange(change PresenceChange) {
	if !change.Connected {
		ctrl.persistOverlay(change.EndpointID)

		if sess, ok := ctrl.broker.EndpointDisconnected(change.EndpointID); ok {
			ctrl.notifySessionStopped(sess)
		}

		if err := ctrl.store.Endpoints().UpdateLastSeen(ctrl.namespace, change.EndpointID); err != nil {
			log.Errorf("controller failed to update endpoint last seen: %v", err)
		}
	}

	ctrl.publishPresence(change)
}

func (ctrl *Controller) persistOverlay(endpointID string) {
	live, ok := ctrl.overlay.Live(endpointID)
	if !ok {
		return
	}

	ep, err := ctrl.store.Endpoints().FindByEndpointID(ctrl.namespace, endpointID)
	if err != nil {
		log.Errorf("controller failed to load baseline for endpoint '%s': %v", endpointID, err)
		return
	}

	ep.Telemetry = ep.Telemetry.Merge(live)
	if err := ctrl.store.Endpoints().Upsert(ep); err != nil {
		log.Errorf("controller failed to persist telemetry for endpoint '%s': %v", endpointID, err)
	}
}

// HandleStatus applies a telemetry report from the endpoint's connection.
// Full reports also refresh the persisted baseline facts.
func (ctrl *Controller) HandleStatus(endpointID string, generation uint64, msg proto.StatusMessage) {
	ctrl.overlay.Update(endpointID, generation, msg.Data)

	if msg.Model == "" && msg.OSVersion == "" {
		return
	}

	ep, err := ctrl.store.Endpoints().FindByEndpointID(ctrl.namespace, endpointID)
	if err != nil {
		log.Errorf("controller failed to load baseline for endpoint '%s': %v", endpointID, err)
		return
	}

	if msg.Model != "" {
		ep.Model = msg.Model
	}
	if msg.OSVersion != "" {
		ep.OSVersion = msg.OSVersion
	}
	if err := ctrl.store.Endpoints().Upsert(ep); err != nil {
		log.Errorf("controller failed to refresh baseline for endpoint '%s': %v", endpointID, err)
	}
}

// HandleLocation applies a location report.
func (ctrl *Controller) HandleLocation(endpointID string, generation uint64, msg proto.LocationMessage) {
	lat, lon := msg.Latitude, msg.Longitude
	ctrl.overlay.Update(endpointID, generation, model.Telemetry{
		Latitude:  &lat,
		Longitude: &lon,
	})
}

// HandleReply feeds an inbound typed reply to the correlated bridge.
func (ctrl *Controller) HandleReply(endpointID string, msg proto.ReplyMessage) {
	if !ctrl.bridge.Resolve(endpointID, string(msg.Type), msg.Data) {
		log.Debugf("controller dropped unsolicited reply '%s' from endpoint '%s'",
			msg.Type, endpointID)
	}
}
