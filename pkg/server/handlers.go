package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
	"gitlab.com/tinyland/lab/minigraph/pkg/session"
)

// fetchRequest describes the graph a card is showing. Duration is in
// seconds, as carried in graph URLs.
type fetchRequest struct {
	Namespaces         []string          `json:"namespaces"`
	Node               *graph.NodeParams `json:"node"`
	GraphType          graph.GraphType   `json:"graphType"`
	Duration           int64             `json:"duration"`
	EdgeLabels         []string          `json:"edgeLabels"`
	TrafficRates       []string          `json:"trafficRates"`
	ShowIdleEdges      bool              `json:"showIdleEdges"`
	ShowIdleNodes      bool              `json:"showIdleNodes"`
	ShowOperationNodes bool              `json:"showOperationNodes"`
}

func (r fetchRequest) params() (graph.FetchParams, error) {
	p := graph.FetchParams{
		GraphType:          graph.GraphTypeVersionedApp,
		Node:               r.Node,
		Duration:           time.Duration(r.Duration) * time.Second,
		EdgeLabels:         r.EdgeLabels,
		TrafficRates:       r.TrafficRates,
		ShowIdleEdges:      r.ShowIdleEdges,
		ShowIdleNodes:      r.ShowIdleNodes,
		ShowOperationNodes: r.ShowOperationNodes,
		InjectServiceNodes: true,
	}
	for _, ns := range r.Namespaces {
		p.Namespaces = append(p.Namespaces, graph.Namespace{Name: ns})
	}
	if r.GraphType != "" {
		gt, err := graph.ParseGraphType(string(r.GraphType))
		if err != nil {
			return p, err
		}
		p.GraphType = gt
	}
	if r.Node != nil && graph.ParseNodeType(string(r.Node.NodeType)) == graph.NodeTypeUnknown {
		return p, errors.New("node.nodeType must be one of app, service, workload, aggregate, box")
	}
	return p, nil
}

// resolveRequest is a tap on exactly one element. Display is the resource
// the page shows, if any.
type resolveRequest struct {
	Display *graph.NodeParams `json:"display"`
	Node    *graph.NodeData   `json:"node"`
	Edge    *graph.EdgeData   `json:"edge"`
}

type resolveResponse struct {
	Element  string           `json:"element"`
	Category graph.NodeType   `json:"category,omitempty"`
	Navigate bool             `json:"navigate"`
	Target   *navigate.Target `json:"target,omitempty"`
	URL      string           `json:"url,omitempty"`
}

type targetResponse struct {
	Target navigate.Target `json:"target"`
	URL    string          `json:"url"`
}

type graphResponse struct {
	Elements  *graph.Elements     `json:"elements"`
	Loading   bool                `json:"loading"`
	Error     string              `json:"error,omitempty"`
	Params    graph.FetchParams   `json:"params"`
	Timestamp int64               `json:"timestamp"`
	Window    *session.TimeWindow `json:"window,omitempty"`
	Label     string              `json:"label"`
}

type navigateRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings())
}

func (s *Server) handlePutSettings(c *gin.Context) {
	settings := s.Settings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
		return
	}
	s.SetSettings(settings)
	s.logger.Info("navigation settings updated", "multi_cluster", settings.MultiCluster, "layout", settings.Layout)
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if (req.Node == nil) == (req.Edge == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of node or edge is required"})
		return
	}

	if req.Edge != nil {
		c.JSON(http.StatusOK, resolveResponse{Element: graph.ElementEdge.String()})
		return
	}

	tap := graph.NodeTap(*req.Node)
	category := graph.Classify(tap)
	target, ok := s.currentBuilder().FromTap(graph.DisplayContextOf(req.Display), tap)
	if s.metrics != nil {
		s.metrics.ObserveTap(category, ok)
	}

	resp := resolveResponse{Element: graph.ElementNode.String(), Category: category, Navigate: ok}
	if ok {
		resp.Target = &target
		resp.URL = target.URL()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFullGraph(c *gin.Context) {
	s.buildTarget(c, s.currentBuilder().FullGraph)
}

func (s *Server) handleNodeGraph(c *gin.Context) {
	s.buildTarget(c, s.currentBuilder().NodeGraph)
}

func (s *Server) buildTarget(c *gin.Context, build func(graph.FetchParams) (navigate.Target, error)) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	params, err := req.params()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := build(params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, navigate.ErrNoFocusNode) || errors.Is(err, navigate.ErrNoNamespace) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, targetResponse{Target: target, URL: target.URL()})
}

func (s *Server) handleGetGraph(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleRefreshGraph(c *gin.Context) {
	if err := s.source.Refresh(c.Request.Context()); err != nil {
		s.logger.Warn("graph refresh failed", "error", err)
		c.JSON(http.StatusBadGateway, s.snapshot())
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) snapshot() graphResponse {
	src := s.source
	resp := graphResponse{
		Elements:  src.GraphData(),
		Loading:   src.IsLoading(),
		Error:     src.ErrorMessage(),
		Params:    src.FetchParameters(),
		Timestamp: src.GraphTimestamp(),
		Label:     session.LoadingLabel,
	}
	if w, ok := session.WindowFor(resp.Timestamp, src.GraphDuration()); ok {
		resp.Window = &w
		resp.Label = session.RangeLabel(w, time.UTC)
	}
	return resp
}

func (s *Server) handleNavigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := s.dispatcher.DispatchURL(c.Request.Context(), req.URL); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, host.ErrNoListeners) || errors.Is(err, host.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"url": req.URL, "listeners": s.hub.Len()})
}
