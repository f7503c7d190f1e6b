package adminwebagent

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
)

// streamTailLines is how much history a new stream starts with.
const streamTailLines = agent.DefaultTailLines

var errClientGone = errors.New("log stream client went away")

// frame is one websocket message.
type frame struct {
	File  string   `json:"file,omitempty"`
	Lines []string `json:"lines"`
}

// newStream sends the tail of the selected log, then every complete line
// appended to it, until the client disconnects.
func newStream(sup *agent.Supervisor, policy requestmeta.SchemePolicy, logger *zap.Logger) http.Handler {
	server := websocket.Server{
		Handshake: func(_ *websocket.Config, r *http.Request) error {
			if !requestmeta.HasSameOriginProof(r, policy) {
				return errors.New("cross-origin log stream")
			}
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			if err := streamLog(conn.Request().Context(), conn, sup); err != nil && !errors.Is(err, errClientGone) {
				logger.Warn("web agent log stream", zap.Error(err))
			}
		},
	}
	return server
}

func streamLog(ctx context.Context, conn *websocket.Conn, sup *agent.Supervisor) error {
	view, err := sup.LogTail(conn.Request().URL.Query().Get("file"), streamTailLines)
	if err != nil {
		return err
	}
	if err := websocket.JSON.Send(conn, frame{File: view.File, Lines: view.Lines}); err != nil {
		return errClientGone
	}
	if view.File == "" {
		return nil
	}
	path, err := sup.LogPath(view.File)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer conn.Close()
		return agent.Follow(groupCtx, path, view.Size, func(lines []string) error {
			if err := websocket.JSON.Send(conn, frame{Lines: lines}); err != nil {
				return errClientGone
			}
			return nil
		})
	})
	group.Go(func() error {
		// Clients never send; a read error means the socket closed.
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return errClientGone
			}
		}
	})
	return group.Wait()
}
