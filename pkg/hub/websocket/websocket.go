// Package websocket drives a single agent connection. It pumps inbound
// frames into the Inbox and writes Outbox messages back to the wire; the
// control channel on top decides what the bytes mean.
package websocket

import (
	"io/ioutil"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	log "github.com/sirupsen/logrus"
)

type Flag int

const (
	FlagContinue Flag = iota
	FlagCloseGracefully
	FlagTerminate
)

type OutboxMessage struct {
	Flag Flag
	Data []byte
}

type InboxMessage struct {
	Data []byte
}

type Driver struct {
	conn   net.Conn
	Inbox  chan *InboxMessage
	Outbox chan *OutboxMessage

	terminateCh    chan<- struct{}
	terminatedOnce sync.Once

	stopCh   chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup
}

func NewDriver(conn net.Conn, terminateCh chan<- struct{}) *Driver {
	return &Driver{
		conn:        conn,
		Inbox:       make(chan *InboxMessage, 100),
		Outbox:      make(chan *OutboxMessage, 100),
		terminateCh: terminateCh,
		stopCh:      make(chan struct{}),
	}
}

func (driver *Driver) Start() {
	driver.wg.Add(1)
	go driver.inboxHandler()
	driver.wg.Add(1)
	go driver.outboxHandler()
}

// Close blocks until both handler goroutines have exited.
func (driver *Driver) Close() {
	driver.wg.Wait()
	log.Debug("websocket driver closed")
}

func (driver *Driver) Stop() {
	log.Debug("websocket driver stop called")
	driver.safeCloseTerminateChannel()
}

func (driver *Driver) closeHandler() {
	defer driver.wg.Done()
	driver.safeCloseTerminateChannel()
	driver.safeCloseStopChannel()
}

func (driver *Driver) safeCloseTerminateChannel() {
	driver.terminatedOnce.Do(func() {
		close(driver.terminateCh)
	})
}

func (driver *Driver) safeCloseStopChannel() {
	driver.stopOnce.Do(func() {
		close(driver.stopCh)
	})
}

func (driver *Driver) inboxHandler() {
	defer driver.closeHandler()

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(driver.conn, state)

	r := &wsutil.Reader{
		Source:         driver.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			// The read error surfaces to the control channel as a
			// presence change, not as an error on whatever operator
			// request is in flight.
			log.Errorf("websocket read message error: %v", err)
			return
		}

		// Handle operation control frames before continuation.
		if h.OpCode.IsControl() {
			if h.OpCode == ws.OpClose {
				log.Info("websocket connection closed gracefully")
				return
			}

			if err = ch(h, r); err != nil {
				log.Errorf("websocket handles control frame error: %v", err)
				return
			}
			continue
		}

		req, err := ioutil.ReadAll(r)
		if err != nil {
			log.Errorf("websocket read error: %v", err)
			return
		}

		driver.Inbox <- NewInboxMessage(req)
	}
}

func (driver *Driver) outboxHandler() {
	defer driver.closeHandler()

	state := ws.StateServerSide
	w := wsutil.NewWriter(driver.conn, state, 0)

	for {
		select {
		case res := <-driver.Outbox:
			if err := writeText(driver.conn, w, state, res.Data); err != nil {
				log.Errorf("websocket terminates because of write error: %s", err.Error())
				return
			}

			switch res.Flag {
			case FlagCloseGracefully:
				closeGraceful(driver.conn, w, state)
				return
			case FlagTerminate:
				return
			}
		case <-driver.stopCh:
			return
		}
	}
}

func writeText(conn net.Conn, w *wsutil.Writer, state ws.State, data []byte) error {
	var err error

	w.Reset(conn, state, ws.OpText)
	if _, err = w.Write(data); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return err
	}

	return nil
}

func closeGraceful(conn net.Conn, w *wsutil.Writer, state ws.State) error {
	log.Info("websocket graceful close initiated")

	w.Reset(conn, state, ws.OpClose)

	var err error
	if _, err = w.Write([]byte("")); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return err
	}

	return nil
}

func NewOutboxMessage(flag Flag, data []byte) *OutboxMessage {
	m := &OutboxMessage{
		Flag: flag,
	}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}

func NewInboxMessage(data []byte) *InboxMessage {
	m := &InboxMessage{}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}
