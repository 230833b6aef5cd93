// Package server hosts the layout engine over HTTP.
//
// Each stored scan owns a lazily constructed [engine.Engine]; layout,
// hit-test, and SVG endpoints compute frames through it, so repeated
// requests with the same quantized parameters are served from the
// engine's memo without recomputation.
//
// Endpoints:
//
//	POST   /api/scans                  scan a directory on the server
//	GET    /api/scans                  list stored scans
//	GET    /api/scans/{id}             one scan's summary
//	DELETE /api/scans/{id}             remove a scan
//	GET    /api/scans/{id}/layout      computed scene as JSON
//	GET    /api/scans/{id}/hit         hit-test a point
//	GET    /api/scans/{id}/scene.svg   rendered scene
//	GET    /healthz                    liveness probe
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/treescope/pkg/config"
	"github.com/matzehuels/treescope/pkg/engine"
	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/render"
	"github.com/matzehuels/treescope/pkg/scan"
	"github.com/matzehuels/treescope/pkg/snapshot"
	"github.com/matzehuels/treescope/pkg/tree"
)

// Server wires the scan store, per-scan engines, and the HTTP router.
type Server struct {
	store  ScanStore
	cfg    config.Config
	logger *log.Logger

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

// New creates a server over the given store.
func New(store ScanStore, cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		engines: make(map[string]*engine.Engine),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/scans", func(r chi.Router) {
		r.Post("/", s.handleCreateScan)
		r.Get("/", s.handleListScans)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetScan)
			r.Delete("/", s.handleDeleteScan)
			r.Get("/layout", s.handleLayout)
			r.Get("/hit", s.handleHit)
			r.Get("/scene.svg", s.handleSceneSVG)
		})
	})
	return r
}

// logRequests logs one line per request through the server's logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createScanRequest is the POST /api/scans body.
type createScanRequest struct {
	Path           string   `json:"path"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`
	IncludeHidden  bool     `json:"include_hidden,omitempty"`
	MaxDepth       int      `json:"max_depth,omitempty"`
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Path == "" {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput, "path is required"))
		return
	}

	opts := scan.Options{
		IgnorePatterns: append(append([]string{}, s.cfg.Scan.IgnorePatterns...), req.IgnorePatterns...),
		IncludeHidden:  req.IncludeHidden || s.cfg.Scan.IncludeHidden,
		MaxDepth:       req.MaxDepth,
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = s.cfg.Scan.MaxDepth
	}
	res, err := scan.Scan(r.Context(), req.Path, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}

	rec := &ScanRecord{
		ID:        uuid.NewString(),
		Root:      req.Path,
		CreatedAt: time.Now().UTC(),
		Files:     res.Stats.Files,
		Dirs:      res.Stats.Dirs,
		Bytes:     res.Stats.TotalBytes,
		Tree:      snapshot.ToDoc(res.Tree),
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		s.respondError(w, err)
		return
	}
	s.registerEngine(rec.ID, res.Tree)

	s.logger.Info("scan stored", "id", rec.ID, "root", rec.Root,
		"files", rec.Files, "duration", res.Duration)
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if recs == nil {
		recs = []*ScanRecord{}
	}
	s.respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	s.mu.Lock()
	delete(s.engines, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	req, err := frameRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	res, err := eng.Compute(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	t := eng.Tree()
	doc := snapshot.SceneToDoc(t.Version(), req.Zoom, res.LOD.Strategy, res.Rects)
	s.respondJSON(w, http.StatusOK, struct {
		snapshot.SceneDoc
		Tier       string `json:"tier"`
		DepthLimit int    `json:"depth_limit"`
		CacheHit   bool   `json:"cache_hit"`
	}{doc, res.LOD.Tier.String(), res.LOD.DepthLimit, res.CacheInfo.Hit})
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	req, err := frameRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	x, err1 := queryFloat(r, "x", 0)
	y, err2 := queryFloat(r, "y", 0)
	if err1 != nil || err2 != nil {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput, "x and y must be numbers"))
		return
	}

	// Computing the frame first pins the hit-test index to this scene.
	if _, err := eng.Compute(r.Context(), req); err != nil {
		s.respondError(w, err)
		return
	}
	id, ok := eng.HitTest(geom.Point{X: x, Y: y})

	resp := map[string]any{"hit": ok}
	if ok {
		n := eng.Tree().MustNode(id)
		resp["node"] = id
		resp["name"] = n.Name
		resp["path"] = n.Path
		resp["size"] = n.Size
		resp["dir"] = n.IsDir()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSceneSVG(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	req, err := frameRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	res, err := eng.Compute(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(render.SVG(eng.Tree(), res.Rects, render.WithBackground("#1e1e1e")))
}

// engineFor returns the engine for the request's scan, building it from
// the stored snapshot on first use.
func (s *Server) engineFor(r *http.Request) (*engine.Engine, error) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	eng, ok := s.engines[id]
	s.mu.Unlock()
	if ok {
		return eng, nil
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	t, err := snapshot.FromDoc(rec.Tree)
	if err != nil {
		return nil, err
	}
	return s.registerEngine(id, t), nil
}

// registerEngine builds and caches an engine for a scan. If two requests
// race, the first registration wins.
func (s *Server) registerEngine(id string, t *tree.Tree) *engine.Engine {
	eng := engine.New(engine.Options{
		Padding:       s.cfg.Engine.Padding,
		MinCell:       s.cfg.Engine.MinCell,
		MaxDepth:      s.cfg.Engine.MaxDepth,
		CacheCapacity: s.cfg.Engine.CacheCapacity,
		Force:         forceConfig(s.cfg.Force),
		Logger:        s.logger,
	})
	// The tree came from a validated snapshot or a fresh scan.
	_ = eng.SetTree(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.engines[id]; ok {
		return existing
	}
	s.engines[id] = eng
	return eng
}

// forceConfig converts configuration values into layout tuning.
func forceConfig(f config.Force) layout.ForceConfig {
	return layout.ForceConfig{
		Steps:     f.Steps,
		DT:        f.DT,
		Damping:   f.Damping,
		Repulsion: f.Repulsion,
		Spring:    f.Spring,
	}
}

// frameRequest parses the layout query parameters shared by the layout,
// hit, and SVG endpoints.
func frameRequest(r *http.Request) (engine.Request, error) {
	zoom, err := queryFloat(r, "zoom", layout.MinZoom)
	if err != nil {
		return engine.Request{}, errors.New(errors.ErrCodeInvalidInput, "zoom must be a number")
	}
	width, err := queryFloat(r, "width", 1280)
	if err != nil {
		return engine.Request{}, errors.New(errors.ErrCodeInvalidInput, "width must be a number")
	}
	height, err := queryFloat(r, "height", 800)
	if err != nil {
		return engine.Request{}, errors.New(errors.ErrCodeInvalidInput, "height must be a number")
	}

	kind := layout.KindAuto
	if ks := r.URL.Query().Get("kind"); ks != "" {
		kind, err = layout.ParseKind(ks)
		if err != nil {
			return engine.Request{}, err
		}
	}

	root := tree.None
	if rs := r.URL.Query().Get("root"); rs != "" {
		v, err := strconv.Atoi(rs)
		if err != nil {
			return engine.Request{}, errors.New(errors.ErrCodeInvalidInput, "root must be a node id")
		}
		root = tree.NodeID(v)
	}

	return engine.Request{
		Root:   root,
		Bounds: geom.Rect{W: width, H: height},
		Zoom:   zoom,
		Kind:   kind,
	}, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// respondError maps structured error codes to HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeInvalidKind:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeScanNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeAborted:
		status = 499 // client closed request
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.respondJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
