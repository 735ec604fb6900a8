package hub

import (
	"github.com/gobwas/ws"
	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/websocket"
)

// Handler serves the agent facing websocket endpoint
type Handler struct {
	ctrl *Controller
}

// NewHandler create a new agent handler
func NewHandler(ctrl *Controller) *Handler {
	return &Handler{
		ctrl: ctrl,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register agent routes")
	api := e.Group("/agent")
	api.Any("/v1", h.controlChannelHandler())
}

func (h *Handler) controlChannelHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			return err
		}
		defer conn.Close()

		terminateCh := make(chan struct{})
		driver := websocket.NewDriver(conn, terminateCh)
		driver.Start()
		defer driver.Close()

		cc := h.ctrl.NewControlChannel(driver)
		defer cc.Close()

		<-terminateCh

		log.Debug("handler exit control channel handler func")
		return nil
	}
}
