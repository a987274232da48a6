package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
	ws "github.com/investly/investly-backend/internal/websocket"
)

// FundingFeedController streams funding updates of one business over a
// websocket.
type FundingFeedController struct {
	investmentService service.InvestmentService
	hub               *ws.Hub
	upgrader          websocket.Upgrader
}

func NewFundingFeedController(investmentService service.InvestmentService, hub *ws.Hub, allowedOrigins []string) *FundingFeedController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &FundingFeedController{
		investmentService: investmentService,
		hub:               hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Subscribe upgrades the connection, sends the current snapshot and then
// every committed change.
// GET /api/v1/businesses/:id/live
func (ctrl *FundingFeedController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	snapshot, err := ctrl.investmentService.FundingSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "subscribe funding feed")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, nil)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, snapshot.BusinessID, actor.ID)
	ctrl.hub.SendSnapshot(client, *snapshot)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Funding feed connection established", map[string]interface{}{
		"business_id": snapshot.BusinessID,
		"user_id":     actor.ID,
	})
}
