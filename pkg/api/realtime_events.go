package api

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/api/resource"
)

// realtimeEventsHandler bridges the internal bus to a dashboard
// websocket: presence and event publications plus remote session frames
// are forwarded as they arrive.
func (h *Handler) realtimeEventsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}
		defer conn.Close()

		closedCh := make(chan struct{})
		var closeOnce sync.Once
		closed := func() { closeOnce.Do(func() { close(closedCh) }) }

		forward := func(msg *nats.Msg) {
			// Get namespace and topic from the bus subject
			strippedSubject := strings.TrimPrefix(msg.Subject, "fleethub.v1.")
			s := strings.Split(strippedSubject, ".")
			namespace := s[0]
			topic := s[len(s)-1]

			// Parse the message and send it
			var data interface{}
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			event := resource.NewRealtimeEvent(namespace, topic, data)
			out, _ := json.Marshal(event)
			if err := wsutil.WriteServerMessage(conn, ws.OpText, out); err != nil {
				log.Error("api: failed to send realtime event: ", err)
				closed()
			}
		}

		eventsSub, err := h.nc.Subscribe("fleethub.v1.*.events.*", forward)
		if err != nil {
			log.Error("api: failed to subscribe to events: ", err)
			return nil
		}
		defer eventsSub.Unsubscribe()

		framesSub, err := h.nc.Subscribe("fleethub.v1.*.sessions.*.frames", forward)
		if err != nil {
			log.Error("api: failed to subscribe to session frames: ", err)
			return nil
		}
		defer framesSub.Unsubscribe()

		// Consume control frames so a client close is noticed.
		go func() {
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					closed()
					return
				}
			}
		}()

		<-closedCh

		log.Debug("api: exit realtime events handler func")
		return nil
	}
}
