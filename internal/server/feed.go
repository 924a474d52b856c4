package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const writeTimeout = 5 * time.Second

// streamBlocks upgrades to a websocket and pushes a block snapshot for the
// mandate every time its stream version changes. Clients only listen;
// anything they send is discarded.
func (s *Server) streamBlocks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mandateID")
	if _, ok := s.logs.Version(id); !ok {
		writeError(w, http.StatusNotFound, "mandate not tracked")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	logger := s.logger.With().Str("mandate", id).Str("conn", uuid.NewString()).Logger()
	logger.Debug().Msg("feed subscriber connected")

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	var sent uint64
	first := true
	for {
		if version, ok := s.logs.Version(id); !ok {
			_ = conn.Close(websocket.StatusGoingAway, "mandate no longer tracked")
			return
		} else if first || version != sent {
			v, ok := s.logs.View(id)
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "mandate no longer tracked")
				return
			}
			if err := s.push(ctx, conn, newBlockSnapshot(v)); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Debug().Err(err).Msg("websocket write")
				}
				return
			}
			sent, first = v.Version, false
		}

		select {
		case <-ctx.Done():
			logger.Debug().Msg("feed subscriber gone")
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn, snap blockSnapshot) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, snap)
}
