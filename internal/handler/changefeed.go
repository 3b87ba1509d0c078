package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewChangefeedMgr)
}

// ChangefeedMgr streams live consultation events to connected viewers
// over a websocket.
type ChangefeedMgr struct {
	name string
	db   *gorm.DB
	feed *changefeed.Feed
}

func NewChangefeedMgr(conf *RegisterConfig) Manager {
	return &ChangefeedMgr{
		name: "changefeed",
		db:   conf.DB,
		feed: conf.Feed,
	}
}

func (mgr *ChangefeedMgr) GetName() string { return mgr.name }

func (mgr *ChangefeedMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ChangefeedMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/consultations/:id", mgr.StreamConsultation)
}

func (mgr *ChangefeedMgr) RegisterAdmin(_ *gin.RouterGroup) {}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the bearer token; the websocket endpoint does not
	// add an origin allowlist on top of it.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// StreamConsultation godoc
//
//	@Summary		Stream consultation events
//	@Description	Upgrades to a websocket delivering message and status events in append order; a lagging client is disconnected and must re-fetch
//	@Tags			Changefeed
//	@Security		Bearer
//	@Param			id	path	int	true	"consultation id"
//	@Success		101	"switching protocols"
//	@Failure		403	{object}	resputil.Response[any]	"no access"
//	@Failure		404	{object}	resputil.Response[any]	"not found"
//	@Router			/v1/changefeed/consultations/{id} [get]
func (mgr *ChangefeedMgr) StreamConsultation(c *gin.Context) {
	var uri ConsultationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	consultation := &model.Consultation{}
	if err := mgr.db.WithContext(c).First(consultation, uri.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Consultation not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !canViewConsultation(actor, consultation) {
		resputil.HTTPError(c, 403, "No access to this consultation", resputil.UserNotAllowed)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		klog.Errorf("websocket upgrade: %v", err)
		return
	}
	defer ws.Close()

	events, cancel := mgr.feed.Subscribe(uri.ID)
	defer cancel()

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				klog.V(2).Infof("changefeed write to consultation %d viewer: %v", uri.ID, err)
				return
			}
		case <-ticker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
