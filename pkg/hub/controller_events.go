package hub

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/message"
	"github.com/fleetware/hub/pkg/model"
)

func (ctrl *Controller) publishPresence(change PresenceChange) {
	if ctrl.nc == nil {
		return
	}

	status := message.PresenceDisconnected
	if change.Connected {
		status = message.PresenceConnected
	}

	ev := message.PresenceEvent{
		EndpointID:    change.EndpointID,
		Status:        status,
		Generation:    change.Generation,
		LastMessageAt: time.Now().Round(time.Second).UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("controller could not marshal presence event: %v", err)
		return
	}

	subj := fmt.Sprintf("fleethub.v1.%s.events.presence", ctrl.namespace)
	if err := ctrl.nc.Publish(subj, data); err != nil {
		log.Errorf("controller could not publish presence event: %v", err)
	}
}

// RecordSupportMessage stores a support request from an endpoint in the
// event store and republishes it for live dashboard subscribers.
func (ctrl *Controller) RecordSupportMessage(endpointID, text string) error {
	details, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	m := model.Event{
		Namespace:  ctrl.namespace,
		SourceType: "ENDPOINT",
		SourceID:   endpointID,
		Topic:      "support",
		Timestamp:  time.Now().Round(time.Second).UTC(),
		Details:    string(details),
	}

	if err := ctrl.store.Events().Create(&m); err != nil {
		return err
	}

	return ctrl.publishStoredEvent(&m)
}

func (ctrl *Controller) publishStoredEvent(m *model.Event) error {
	if ctrl.nc == nil {
		return nil
	}

	// Unmarshal the details string back to an interface so subscribers
	// receive proper JSON instead of an escaped string.
	var details interface{}
	if err := json.Unmarshal([]byte(m.Details), &details); err != nil {
		return err
	}

	msg := message.EventMessage{
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		PublicationID: m.ID,
		Timestamp:     m.Timestamp,
		Details:       details,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	subj := fmt.Sprintf("fleethub.v1.%s.events.%s", m.Namespace, m.Topic)
	return ctrl.nc.Publish(subj, data)
}

// PublishFrame implements FramePublisher: remote desktop frame data flows
// to the operator through the session's frame subject.
func (ctrl *Controller) PublishFrame(sess RemoteSession, frameData string) error {
	if ctrl.nc == nil {
		return nil
	}

	ev := message.FrameEvent{
		SessionID:  sess.ID,
		EndpointID: sess.EndpointID,
		Data:       frameData,
		Timestamp:  time.Now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	subj := fmt.Sprintf("fleethub.v1.%s.sessions.%s.frames", ctrl.namespace, sess.ID)
	return ctrl.nc.Publish(subj, data)
}
