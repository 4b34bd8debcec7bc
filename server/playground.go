package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"github.com/chazu/tape/pkg/bytecode"
)

const (
	maxMessageSize = 64 * 1024
	writeWait      = 10 * time.Second
)

// RunStatus is the final text message of a playground session.
type RunStatus struct {
	Done  bool   `json:"done"`
	Steps uint64 `json:"steps"`
	Error string `json:"error,omitempty"`
}

// Playground runs one program per websocket connection. Every text or binary
// message from the client is appended to the program's input and an empty
// message ends the input. Output arrives as binary messages, flushed whenever
// the program waits for input and when it stops. The session ends with a
// RunStatus JSON message followed by a normal close.
type Playground struct {
	prog     *bytecode.Program
	timeout  time.Duration
	opts     []bytecode.Option
	upgrader websocket.Upgrader
	log      commonlog.Logger
}

// NewPlayground creates a playground for p. A zero timeout means runs are
// only stopped by the client going away.
func NewPlayground(p *bytecode.Program, timeout time.Duration, opts ...bytecode.Option) *Playground {
	return &Playground{
		prog:    p,
		timeout: timeout,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: commonlog.GetLogger("tape.playground"),
	}
}

func (pg *Playground) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := pg.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pg.log.Warningf("upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	pg.log.Infof("session %s: connected from %s", id, r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if pg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, pg.timeout)
		defer cancel()
	}

	inR, inW := io.Pipe()
	go pg.readInput(conn, inW, cancel)

	out := bufio.NewWriterSize(&messageWriter{conn: conn}, 4096)
	vm := bytecode.NewMachine(pg.prog, &flushingReader{r: inR, w: out}, out, pg.opts...)

	runErr := vm.RunContext(ctx)
	if ferr := out.Flush(); ferr != nil && runErr == nil {
		runErr = ferr
	}
	inR.Close()

	status := RunStatus{Done: runErr == nil, Steps: vm.Steps()}
	if runErr != nil {
		status.Error = runErr.Error()
		pg.log.Infof("session %s: stopped after %d steps: %v", id, vm.Steps(), runErr)
	} else {
		pg.log.Infof("session %s: finished in %d steps", id, vm.Steps())
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(status); err != nil {
		pg.log.Debugf("session %s: status not delivered: %v", id, err)
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readInput copies client messages into the program's input until the client
// ends the input or goes away. A disconnect also cancels the run.
func (pg *Playground) readInput(conn *websocket.Conn, w *io.PipeWriter, cancel context.CancelFunc) {
	conn.SetReadLimit(maxMessageSize)
	open := true
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				pg.log.Warningf("read: %v", err)
			}
			w.Close()
			cancel()
			return
		}
		if !open {
			continue
		}
		if len(msg) == 0 {
			w.Close()
			open = false
			continue
		}
		if _, err := w.Write(msg); err != nil {
			// The program stopped reading.
			open = false
		}
	}
}

// messageWriter sends each Write as one binary message.
type messageWriter struct {
	conn *websocket.Conn
}

func (mw *messageWriter) Write(p []byte) (int, error) {
	mw.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := mw.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// flushingReader flushes pending output before every read so a prompt reaches
// the client before the program blocks on input.
type flushingReader struct {
	r io.Reader
	w *bufio.Writer
}

func (f *flushingReader) Read(p []byte) (int, error) {
	if err := f.w.Flush(); err != nil {
		return 0, err
	}
	n, err := f.r.Read(p)
	if errors.Is(err, io.ErrClosedPipe) {
		err = io.EOF
	}
	return n, err
}
