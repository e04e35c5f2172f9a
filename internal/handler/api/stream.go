package api

import (
	"net/http"
	"time"

	models "EdgeLab/internal/domain/models"
	domservice "EdgeLab/internal/domain/service"
	xhttp "EdgeLab/pkg/http"
	xlogger "EdgeLab/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamHandler pushes fusion snapshots for one symbol over a
// websocket at a client-chosen interval.
type StreamHandler struct {
	logger   *xlogger.Logger
	fuser    domservice.Fuser
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, fuser domservice.Fuser) *StreamHandler {
	return &StreamHandler{
		logger: logger,
		fuser:  fuser,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) Serve(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := time.ParseDuration(req.Interval)
	if err != nil || interval < time.Second {
		interval = 5 * time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	regime := models.Regime(req.Regime)

	// read pump: drain control frames and detect client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// first snapshot immediately
	if err := conn.WriteJSON(h.fuser.Fuse(ctx, req.Symbol, regime, nil)); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ticker.C:
			if err := conn.WriteJSON(h.fuser.Fuse(ctx, req.Symbol, regime, nil)); err != nil {
				if h.logger != nil {
					h.logger.Debug("stream client gone", xlogger.String("symbol", req.Symbol))
				}
				return nil
			}
		}
	}
}
