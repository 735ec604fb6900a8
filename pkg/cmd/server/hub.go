package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fleetware/hub/config"
	"github.com/fleetware/hub/pkg/api"
	"github.com/fleetware/hub/pkg/hub"
	"github.com/fleetware/hub/pkg/storage"
	"github.com/fleetware/hub/pkg/storage/memory"
	"github.com/fleetware/hub/pkg/storage/postgres"

	_ "github.com/lib/pq"
)

type hubServer struct {
	c *config.Config

	quitCh chan bool
	doneCh chan bool

	nc    *nats.Conn
	db    *sqlx.DB
	errCh chan error
	wg    sync.WaitGroup
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	// Only log the warning severity or above.
	log.SetLevel(log.InfoLevel)
}

func newHubServer(c *config.Config) (*hubServer, error) {
	s := &hubServer{
		c:      c,
		quitCh: make(chan bool),
		doneCh: make(chan bool),

		errCh: make(chan error, 1),
		wg:    sync.WaitGroup{},
	}

	nc, err := nats.Connect(c.NATSServerURL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error handler: ", err)
			s.errCh <- err
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			s.wg.Done()
		}),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Warn("nats disconnected, shutting down")
			syscall.Kill(syscall.Getpid(), syscall.SIGINT)
		}))
	if err != nil {
		return nil, err
	}

	s.nc = nc
	s.wg.Add(1)

	return s, nil
}

// newStore returns the postgres backed store when a database URL is
// configured, the in-memory store otherwise.
func (s *hubServer) newStore() (storage.Interface, error) {
	if s.c.DatabaseURL == "" {
		log.Info("No database URL configured, using in-memory store")
		return memory.NewStore(), nil
	}

	db, err := sqlx.Open("postgres", s.c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s.db = db
	return postgres.NewStore(db), nil
}

func (s *hubServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	store, err := s.newStore()
	if err != nil {
		log.Error("failed to create store: ", err)
		s.doneCh <- true
		return
	}

	// Create the controller
	ctrl := hub.NewController(s.nc, store, s.c)
	if err := ctrl.Subscribe(); err != nil {
		log.Error("failed to subscribe controller: ", err)
		s.doneCh <- true
		return
	}
	ctrl.Start()

	// Register endpoint control channel routes
	hubHandler := hub.NewHandler(ctrl)
	hubHandler.RegisterRoutes(e)

	// Register API endpoints
	apiHandler := api.NewHandler(s.nc, store, ctrl)
	apiHandler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	ctrl.Stop()

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	if s.db != nil {
		s.db.Close()
	}

	// We've done!
	s.doneCh <- true
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}
			reqSizeStr := req.Header.Get(echo.HeaderContentLength)
			if reqSizeStr == "" {
				reqSizeStr = "0"
			}
			reqSize, err := strconv.ParseInt(reqSizeStr, 10, 0)
			if err != nil {
				reqSize = -1
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"timestamp":     stop.Format(time.RFC3339),
				"id":            id,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"referer":       req.Referer(),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}

func (s *hubServer) Shutdown() {
	if s.nc != nil {
		s.nc.Drain()
	}

	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

func RunServeHub(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newHubServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
