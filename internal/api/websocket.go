package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/robotlog-visualizer/backend/internal/logging"
	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/playback"
)

// Playback commands sent by the client
const (
	CmdPlay   = "play"
	CmdPause  = "pause"
	CmdToggle = "toggle"
	CmdReset  = "reset"
	CmdSeek   = "seek"
	CmdPing   = "ping"
)

// Frame types sent by the server
const (
	MsgTypeFrame = "frame"
	MsgTypeError = "error"
	MsgTypePong  = "pong"
)

const writeWait = 5 * time.Second

// PlaybackCommand is a client control message
type PlaybackCommand struct {
	Command string  `json:"command"`
	Time    float64 `json:"time,omitempty"`
}

// PlaybackFrame is the viewer state at the playback position
type PlaybackFrame struct {
	Type    string                  `json:"type"`
	Time    float64                 `json:"time"`
	MaxTime float64                 `json:"maxTime"`
	Playing bool                    `json:"playing"`
	Values  map[string]models.Value `json:"values"`
	Pose    *models.Pose2d          `json:"pose"`
}

// WSErrorResponse reports a rejected command
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PlaybackOptions tunes the playback clock and websocket
type PlaybackOptions struct {
	Step           float64
	Interval       time.Duration
	MaxMessageSize int64
}

// WebSocketHandler drives a playback clock per connection
type WebSocketHandler struct {
	sessions SessionManager
	opts     PlaybackOptions
	upgrader websocket.Upgrader
	log      *log.Logger
}

// NewWebSocketHandler creates a new playback websocket handler
func NewWebSocketHandler(sessions SessionManager, opts PlaybackOptions) *WebSocketHandler {
	if opts.Interval <= 0 {
		opts.Interval = playback.DefaultInterval
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 4096
	}
	return &WebSocketHandler{
		sessions: sessions,
		opts:     opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		log: logging.New("playback"),
	}
}

// HandlePlayback upgrades to a websocket and streams frames while the clock
// plays. Query parameters: fields (comma list, default selection when
// empty) and pose (pose field, first pose field when empty).
func (wsh *WebSocketHandler) HandlePlayback(c echo.Context) error {
	id := c.Param("sessionId")
	info, err := wsh.sessions.Fields(id)
	if err != nil {
		return sessionError(err, id)
	}

	fields := splitList(c.QueryParam("fields"))
	if len(fields) == 0 {
		fields = info.DefaultSelection
	}
	poseField := c.QueryParam("pose")
	if poseField == "" && len(info.PoseFields) > 0 {
		poseField = info.PoseFields[0]
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.opts.MaxMessageSize)

	wsh.log.Infof("[%s] Playback client connected", id)

	p := &playbackConn{
		ws:        ws,
		sessions:  wsh.sessions,
		sessionID: id,
		fields:    fields,
		poseField: poseField,
		clock:     playback.NewClock(info.MaxTime, wsh.opts.Step),
		log:       wsh.log,
	}
	p.serve(c.Request().Context(), wsh.opts.Interval)

	wsh.log.Infof("[%s] Playback client disconnected", id)
	return nil
}

// playbackConn owns one websocket. Only serve writes to it.
type playbackConn struct {
	ws        *websocket.Conn
	sessions  SessionManager
	sessionID string
	fields    []string
	poseField string
	clock     *playback.Clock
	log       *log.Logger
}

func (p *playbackConn) serve(parent context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	commands := make(chan PlaybackCommand)
	go p.readCommands(ctx, cancel, commands)

	ticks := make(chan playback.State, 1)
	go p.clock.Run(ctx, interval, func(s playback.State) {
		// Keep only the newest state; Run is the only sender.
		select {
		case <-ticks:
		default:
		}
		ticks <- s
	})

	if err := p.sendFrame(ctx, p.clock.State()); err != nil {
		return
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case s := <-ticks:
			err = p.sendFrame(ctx, s)
		case cmd := <-commands:
			err = p.apply(ctx, cmd)
		}
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.log.Warnf("[%s] Playback write failed: %v", p.sessionID, err)
			}
			return
		}
		p.sessions.TouchSession(p.sessionID)
	}
}

// readCommands feeds client messages to the writer until the socket closes.
func (p *playbackConn) readCommands(ctx context.Context, cancel context.CancelFunc, out chan<- PlaybackCommand) {
	defer cancel()
	for {
		var cmd PlaybackCommand
		if err := p.ws.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.log.Debugf("[%s] Playback read ended: %v", p.sessionID, err)
			}
			return
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (p *playbackConn) apply(ctx context.Context, cmd PlaybackCommand) error {
	var s playback.State
	switch cmd.Command {
	case CmdPlay:
		s = p.clock.Play()
	case CmdPause:
		s = p.clock.Pause()
	case CmdToggle:
		s = p.clock.Toggle()
	case CmdReset:
		s = p.clock.Reset()
	case CmdSeek:
		s = p.clock.Seek(cmd.Time)
	case CmdPing:
		return p.write(map[string]string{"type": MsgTypePong})
	default:
		return p.write(WSErrorResponse{
			Type:    MsgTypeError,
			Message: "Unknown command: " + cmd.Command,
			Code:    "INVALID_COMMAND",
		})
	}
	return p.sendFrame(ctx, s)
}

func (p *playbackConn) sendFrame(ctx context.Context, s playback.State) error {
	frame := PlaybackFrame{
		Type:    MsgTypeFrame,
		Time:    s.Time,
		MaxTime: s.MaxTime,
		Playing: s.Playing,
	}

	values, err := p.sessions.ValuesAtTime(ctx, p.sessionID, p.fields, s.Time)
	if err != nil {
		return p.queryFailed(err)
	}
	frame.Values = values

	if p.poseField != "" {
		pose, ok, err := p.sessions.PoseAtTime(p.sessionID, p.poseField, s.Time)
		if err != nil {
			return p.queryFailed(err)
		}
		if ok {
			frame.Pose = &pose
		}
	}

	return p.write(frame)
}

// queryFailed tells the client why the stream ends and returns err.
func (p *playbackConn) queryFailed(err error) error {
	p.write(WSErrorResponse{Type: MsgTypeError, Message: err.Error(), Code: "QUERY_FAILED"})
	return err
}

func (p *playbackConn) write(v interface{}) error {
	p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return p.ws.WriteJSON(v)
}
