package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aconic-ni/customsclass-r/internal/auth"
	"github.com/aconic-ni/customsclass-r/internal/classifier"
	"github.com/aconic-ni/customsclass-r/internal/history"
	"github.com/aconic-ni/customsclass-r/internal/web"
)

// Config defines presentation settings.
type Config struct {
	Title          string
	Provider       string
	AllowedOrigins []string
	RequireUser    bool
	AuthHeader     string
}

// Classifier runs one classification.
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (classifier.Outcome, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the Server.
type Deps struct {
	Classifier Classifier
	History    history.Store
	Auth       auth.Authenticator
	DB         Pinger
}

// Server wires HTTP handlers with classification and history.
type Server struct {
	cfg        Config
	classifier Classifier
	history    history.Store
	auth       auth.Authenticator
	db         Pinger
	notifier   *HistoryNotifier
}

// NewServer constructs the API server.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Classifier == nil {
		return nil, errors.New("classifier required")
	}
	if deps.History == nil {
		return nil, errors.New("history store required")
	}
	if deps.Auth == nil {
		deps.Auth = auth.Anonymous{}
	}
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = "HS Code Classifier"
	}
	return &Server{
		cfg:        cfg,
		classifier: deps.Classifier,
		history:    deps.History,
		auth:       deps.Auth,
		db:         deps.DB,
		notifier:   NewHistoryNotifier(),
	}, nil
}

// Notifier exposes the websocket fan-out.
func (s *Server) Notifier() *HistoryNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	if h := strings.TrimSpace(s.cfg.AuthHeader); h != "" {
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, h)
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}
	r.Use(cors.New(corsCfg))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	static, err := web.Static()
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", static)

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/", s.identify, s.handleIndex)

	api := r.Group("/api", s.identify)
	{
		classify := []gin.HandlerFunc{s.handleClassify}
		if s.cfg.RequireUser {
			classify = append([]gin.HandlerFunc{s.requireUser}, classify...)
		}
		api.POST("/classify", classify...)

		hist := api.Group("/history", s.requireUser)
		hist.GET("", s.handleListHistory)
		hist.DELETE("", s.handleClearHistory)
		hist.GET("/export", s.handleExportHistory)
		hist.GET("/stream", s.handleHistoryStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logrus.WithError(err).Warn("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		Provider:             s.cfg.Provider,
		AuthMode:             s.auth.Mode(),
		RequireUser:          s.cfg.RequireUser,
		MinDescriptionLength: classifier.MinDescriptionLength,
	})
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, web.IndexTemplate, web.PageData{
		Title:                s.cfg.Title,
		AuthMode:             s.auth.Mode(),
		Provider:             s.cfg.Provider,
		MinDescriptionLength: classifier.MinDescriptionLength,
	})
}

func (s *Server) handleClassify(c *gin.Context) {
	var body ClassifyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.renderError(c, http.StatusBadRequest, "Request body must be a JSON object with brand and description.")
		return
	}
	id := identityFrom(c)

	out, err := s.classifier.Classify(c.Request.Context(), classifier.Request{
		Brand:       body.Brand,
		Description: body.Description,
		UserID:      id.UID,
	})
	if err != nil {
		var verr *classifier.ValidationError
		var failure *classifier.Failure
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
		case errors.As(err, &failure):
			_ = c.Error(err)
			s.renderError(c, http.StatusBadGateway, failure.Message)
		default:
			_ = c.Error(err)
			s.renderError(c, http.StatusInternalServerError, classifier.GenericMessage)
		}
		return
	}

	if out.Item != nil {
		s.notifier.Publish(id.UID, HistoryEvent{Type: EventSaved, Item: out.Item})
	}
	c.JSON(http.StatusOK, FromOutcome(out))
}

func (s *Server) handleListHistory(c *gin.Context) {
	id := identityFrom(c)
	items, err := s.history.List(c.Request.Context(), id.UID)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, classifier.GenericMessage)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{User: id, Items: items})
}

func (s *Server) handleExportHistory(c *gin.Context) {
	items, err := s.history.List(c.Request.Context(), identityFrom(c).UID)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, classifier.GenericMessage)
		return
	}
	payload, err := history.Export(items)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, classifier.GenericMessage)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", history.ExportFilename(time.Now().UTC())))
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (s *Server) handleClearHistory(c *gin.Context) {
	id := identityFrom(c)
	deleted, err := s.history.Clear(c.Request.Context(), id.UID)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, classifier.GenericMessage)
		return
	}
	s.notifier.Publish(id.UID, HistoryEvent{Type: EventCleared, Deleted: deleted})
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleHistoryStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, allowed := range s.cfg.AllowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	uid := identityFrom(c).UID
	client := s.notifier.Register(uid, conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("history websocket connected")
	defer s.notifier.Unregister(uid, client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("history websocket closed")
			} else {
				logrus.WithError(err).Warn("history websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}
