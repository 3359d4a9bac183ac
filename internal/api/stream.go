package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trading-analysisv1/internal/backtest"
)

const (
	writeWait    = 10 * time.Second
	requestWait  = 30 * time.Second
	maxFrameSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// streamMessage is one frame sent to the client. Type is progress, result
// or error.
type streamMessage struct {
	Type     string             `json:"type"`
	Progress *backtest.Progress `json:"progress,omitempty"`
	Best     *backtest.Trial    `json:"best,omitempty"`
	Trials   []backtest.Trial   `json:"trials,omitempty"`
	Error    string             `json:"error,omitempty"`
	Status   int                `json:"status,omitempty"`
}

// handleOptimizeStream upgrades to a WebSocket, reads one optimize request
// frame and streams a progress frame per finished trial followed by a
// result or error frame. Closing the socket cancels the search.
func (s *Server) handleOptimizeStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[api] ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(requestWait))

	var req optimizeRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeFrame(conn, streamMessage{Type: "error", Error: "expected an optimize request: " + err.Error(), Status: http.StatusBadRequest})
		return
	}
	if req.Symbol == "" {
		req.Symbol = c.Query("symbol")
	}
	base, grid, err := req.params()
	if err != nil {
		s.writeFrame(conn, streamMessage{Type: "error", Error: err.Error(), Status: statusFor(err)})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Any read after the request means the peer went away or broke protocol.
	conn.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	opts := backtest.OptimizeOptions{
		OnProgress: func(p backtest.Progress) {
			// Progress callbacks are serialized by the optimizer.
			if err := s.writeFrame(conn, streamMessage{Type: "progress", Progress: &p}); err != nil {
				cancel()
			}
		},
	}
	res, err := s.cfg.Analyzer.OptimizeSymbol(ctx, symbolParam(req.Symbol), base, grid, opts)
	if err != nil {
		s.writeFrame(conn, streamMessage{Type: "error", Error: err.Error(), Status: statusFor(err)})
		return
	}

	trials := res.Trials
	if req.Top > 0 && req.Top < len(trials) {
		trials = res.Ranked()[:req.Top]
	}
	s.writeFrame(conn, streamMessage{Type: "result", Best: &res.Best, Trials: trials})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) writeFrame(conn *websocket.Conn, msg streamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
