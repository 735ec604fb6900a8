package hub

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fleetware/hub/pkg/hub/message"
)

func (ctrl *Controller) handleDispatchRequest(msg *nats.Msg) error {
	req := message.DispatchRequest{}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return ctrl.replyDispatchFailed(msg.Reply, "ERR_INVALID_REQUEST", nil)
	}

	results, err := ctrl.DispatchCommand(req.Target, req.GroupID, req.Command, req.Params)
	if err != nil {
		return ctrl.replyDispatchFailed(msg.Reply, err.Error(), nil)
	}

	rep := message.DispatchReply{
		Status:  message.ReplyStatusSuccess,
		Results: make(map[string]string, len(results)),
	}
	for id, targetErr := range results {
		if targetErr != nil {
			rep.Results[id] = targetErr.Error()
		} else {
			rep.Results[id] = ""
		}
	}

	return ctrl.replyMessage(msg.Reply, rep)
}

func (ctrl *Controller) handleCorrelatedRequest(msg *nats.Msg) error {
	req := message.CorrelatedRequest{}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return ctrl.replyCorrelatedFailed(msg.Reply, "ERR_INVALID_REQUEST", nil)
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond

	var fallback interface{}
	if req.Fallback != nil {
		fallback = req.Fallback
	}

	payload, timedOut, err := ctrl.RequestWithReply(req.Target, req.Command,
		req.ReplyType, req.Params, timeout, fallback)
	if err != nil {
		return ctrl.replyCorrelatedFailed(msg.Reply, err.Error(), nil)
	}

	rep := message.CorrelatedReply{
		Status:   message.ReplyStatusSuccess,
		TimedOut: timedOut,
	}
	if m, ok := payload.(map[string]interface{}); ok {
		rep.Payload = m
	}

	return ctrl.replyMessage(msg.Reply, rep)
}

func (ctrl *Controller) replyDispatchFailed(replyTo, reason string, details interface{}) error {
	return ctrl.replyMessage(replyTo, message.DispatchReply{
		Status:       message.ReplyStatusError,
		ErrorReason:  reason,
		ErrorDetails: details,
	})
}

func (ctrl *Controller) replyCorrelatedFailed(replyTo, reason string, details interface{}) error {
	return ctrl.replyMessage(replyTo, message.CorrelatedReply{
		Status:       message.ReplyStatusError,
		ErrorReason:  reason,
		ErrorDetails: details,
	})
}
