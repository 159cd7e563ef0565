package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lightsync/internal/errs"
	"lightsync/internal/logger"
	"lightsync/internal/model"
	"lightsync/internal/repository"
	"lightsync/internal/secret"
	"lightsync/internal/sync"
	"lightsync/internal/webdav"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo     *echo.Echo
	manager  *sync.Manager
	folders  *repository.FolderStore
	servers  *repository.ServerStore
	logs     *repository.LogStore
	sessions *repository.SessionStore
	secrets  secret.Store
	port     int
	stopCh   chan struct{}
}

func NewServer(
	manager *sync.Manager,
	folders *repository.FolderStore,
	servers *repository.ServerStore,
	logs *repository.LogStore,
	sessions *repository.SessionStore,
	secrets secret.Store,
	port int,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		manager:  manager,
		folders:  folders,
		servers:  servers,
		logs:     logs,
		sessions: sessions,
		secrets:  secrets,
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// For the entire daemon
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)

	// For a specific sync folder
	f := s.echo.Group("/folders")
	f.GET("", s.handleListFolders)
	f.POST("", s.handleAddFolder)
	f.DELETE("/:id", s.handleRemoveFolder)
	f.GET("/:id/state", s.handleFolderState)
	f.GET("/:id/events", s.handleFolderEvents)
	f.POST("/:id/start", s.handleStartFolder)
	f.POST("/:id/stop", s.handleStopFolder)
	f.POST("/:id/sync", s.handleTriggerSync)
	f.POST("/:id/resolve", s.handleResolve)

	// WebDAV servers
	v := s.echo.Group("/servers")
	v.GET("", s.handleListServers)
	v.POST("", s.handleAddServer)
	v.DELETE("/:id", s.handleRemoveServer)
	v.POST("/:id/test", s.handleTestServer)

	// Audit trail
	s.echo.GET("/history", s.handleHistory)
	s.echo.GET("/sessions", s.handleSessions)
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.manager.StopAll()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

// jsonError maps an error's kind to an HTTP status.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConfig, errs.KindConflict:
		status = http.StatusBadRequest
	case errs.KindAuth:
		status = http.StatusUnauthorized
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(c echo.Context) error {
	statuses, err := s.manager.StatusAll()
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"folders": statuses,
	})
}

func (s *Server) handleStop(c echo.Context) error {
	s.stopCh <- struct{}{}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleListFolders(c echo.Context) error {
	statuses, err := s.manager.StatusAll()
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, statuses)
}

func (s *Server) handleAddFolder(c echo.Context) error {
	var req model.SyncFolder
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid folder definition"})
	}

	folder, err := s.folders.Add(req)
	if err != nil {
		return jsonError(c, err)
	}

	if err := s.manager.Start(c.Request().Context(), folder.ID); err != nil {
		logger.Log.Warn("folder added but pipeline failed to start",
			zap.String("folder", folder.Name),
			zap.Error(err))
	}

	return c.JSON(http.StatusCreated, folder)
}

func (s *Server) handleRemoveFolder(c echo.Context) error {
	id := c.Param("id")

	_ = s.manager.Stop(id)

	if err := s.folders.Delete(id); err != nil {
		return jsonError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleFolderState(c echo.Context) error {
	id := c.Param("id")

	status, err := s.manager.Status(id)
	if err != nil {
		return jsonError(c, err)
	}

	files, err := s.manager.Files(id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": status,
		"files":  files,
	})
}

// handleFolderEvents streams per-path state changes as server-sent events
// until the client disconnects.
func (s *Server) handleFolderEvents(c echo.Context) error {
	changes, cancel, err := s.manager.Subscribe(c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	defer cancel()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case change := <-changes:
			data, err := json.Marshal(change)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}

func (s *Server) handleStartFolder(c echo.Context) error {
	if err := s.manager.Start(c.Request().Context(), c.Param("id")); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStopFolder(c echo.Context) error {
	if err := s.manager.Stop(c.Param("id")); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleTriggerSync(c echo.Context) error {
	if err := s.manager.TriggerSync(c.Param("id")); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "sync requested"})
}

type resolveRequest struct {
	Path       string `json:"path"`
	Resolution string `json:"resolution"`
}

func (s *Server) handleResolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil || req.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "path and resolution required"})
	}

	res, err := sync.ParseResolution(req.Resolution)
	if err != nil {
		return jsonError(c, err)
	}

	session, err := s.manager.Resolve(c.Request().Context(), c.Param("id"), req.Path, res)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleListServers(c echo.Context) error {
	servers, err := s.servers.GetAll(false)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, servers)
}

type addServerRequest struct {
	model.WebDavServer
	Password string `json:"password"`
}

func (s *Server) handleAddServer(c echo.Context) error {
	var req addServerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid server definition"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "password required"})
	}

	server, err := s.servers.Add(req.WebDavServer)
	if err != nil {
		return jsonError(c, err)
	}

	if err := s.secrets.SetPassword(server.ID, req.Password); err != nil {
		_ = s.servers.Delete(server.ID)
		return jsonError(c, err)
	}

	return c.JSON(http.StatusCreated, server)
}

func (s *Server) handleRemoveServer(c echo.Context) error {
	id := c.Param("id")

	if err := s.servers.Delete(id); err != nil {
		return jsonError(c, err)
	}

	if err := s.secrets.DeletePassword(id); err != nil {
		logger.Log.Warn("failed to remove stored password",
			zap.String("server_id", id),
			zap.Error(err))
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleTestServer(c echo.Context) error {
	id := c.Param("id")

	server, err := s.servers.GetByID(id)
	if err != nil {
		return jsonError(c, err)
	}

	password, err := s.secrets.GetPassword(id)
	if err != nil {
		return jsonError(c, err)
	}

	client, err := webdav.NewHTTPClient(server, password)
	if err != nil {
		return jsonError(c, err)
	}

	serverType, err := client.TestConnection(c.Request().Context())
	if err != nil {
		_ = s.servers.RecordTest(id, "failed", err.Error(), "")
		return jsonError(c, err)
	}

	if err := s.servers.RecordTest(id, "ok", "", serverType); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":      "ok",
		"server_type": serverType,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	filter := repository.LogFilter{
		FolderID: c.QueryParam("folder_id"),
		Status:   model.LogStatus(c.QueryParam("status")),
	}
	if n := c.QueryParam("limit"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			filter.Limit = parsed
		}
	}
	if n := c.QueryParam("offset"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			filter.Offset = parsed
		}
	}

	entries, err := s.logs.Query(filter)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleSessions(c echo.Context) error {
	limit := 20
	if n := c.QueryParam("limit"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			limit = parsed
		}
	}

	rows, err := s.sessions.Recent(c.QueryParam("folder_id"), limit)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, rows)
}
