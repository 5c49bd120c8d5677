package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/ritzau/flow-builder/pkg/banner"
	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/ritzau/flow-builder/pkg/pubsub"
	"github.com/ritzau/flow-builder/pkg/session"
)

//go:embed static/*
var staticFiles embed.FS

const shutdownTimeout = 5 * time.Second

// Options configures a Server
type Options struct {
	Session     *session.Session
	Publisher   *pubsub.SSEPublisher // Defaults to a publisher for the editor topics
	Metrics     http.Handler         // Served at /metrics when set
	AssetsDir   string               // Serve static files from disk instead of the embedded copy
	CORSOrigins []string
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	session   *session.Session
	publisher *pubsub.SSEPublisher
	metrics   http.Handler
	static    http.FileSystem
}

// NewServer creates a new web server and subscribes it to the session's changes
func NewServer(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, errors.New("web server needs a session")
	}

	static, err := staticFileSystem(opts.AssetsDir)
	if err != nil {
		return nil, err
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = pubsub.NewTopicPublisher(pubsub.EditorTopics())
	}

	s := &Server{
		router:    mux.NewRouter(),
		session:   opts.Session,
		publisher: publisher,
		metrics:   opts.Metrics,
		static:    static,
	}
	s.setupRoutes()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = logging.RequestIDMiddleware(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(s.router))

	s.session.OnChange(func(state session.State) {
		s.publish(pubsub.TopicFlowState, pubsub.EventState, state)
	})
	s.session.OnBannerChange(func(msg banner.Message) {
		s.publish(pubsub.TopicBanner, pubsub.EventBanner, msg)
	})

	return s, nil
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// PublishAssetsChanged tells open pages that static files changed on disk
func (s *Server) PublishAssetsChanged(paths []string, stylesOnly bool) {
	s.publish(pubsub.TopicAssets, pubsub.EventReload, pubsub.AssetsChanged{Paths: paths, StylesOnly: stylesOnly})
}

// PublishSaves returns a sink announcing accepted saves on the flow state topic
func PublishSaves(publisher pubsub.Publisher) session.Sink {
	return session.SinkFunc(func(ctx context.Context, flow *model.Snapshot) error {
		saved := pubsub.FlowSaved{Nodes: len(flow.Nodes), Edges: len(flow.Edges)}
		if err := publisher.Publish(pubsub.TopicFlowState, pubsub.EventSaved, saved); err != nil {
			logging.WarnContext(ctx, "failed to announce save", "error", err)
		}
		return nil
	})
}

func (s *Server) publish(topic, eventType string, data any) {
	err := s.publisher.Publish(topic, eventType, data)
	switch {
	case err == nil:
	case errors.Is(err, pubsub.ErrClosed):
		logging.Debug("dropping event after shutdown", "topic", topic, "type", eventType)
	default:
		logging.Warn("failed to publish event", "topic", topic, "type", eventType, "error", err)
	}
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/palette", s.handlePalette).Methods("GET")
	api.HandleFunc("/flow", s.handleFlow).Methods("GET")
	api.HandleFunc("/flow/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/flow/export", s.handleExport).Methods("GET")
	api.HandleFunc("/nodes", s.handleDropNode).Methods("POST")
	api.HandleFunc("/nodes/{id}/data", s.handlePatchNodeData).Methods("PATCH")
	api.HandleFunc("/nodes/{id}/position", s.handleMoveNode).Methods("PUT")
	api.HandleFunc("/nodes/{id}", s.handleRemoveNode).Methods("DELETE")
	api.HandleFunc("/edges", s.handleConnect).Methods("POST")
	api.HandleFunc("/edges/{id}", s.handleRemoveEdge).Methods("DELETE")
	api.HandleFunc("/selection", s.handleSelect).Methods("PUT")
	api.HandleFunc("/selection", s.handleDeselect).Methods("DELETE")
	api.HandleFunc("/banner", s.handleDismissBanner).Methods("DELETE")
	api.HandleFunc("/save", s.handleSave).Methods("POST")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	// Serve static files
	s.router.PathPrefix("/").Handler(http.FileServer(s.static))
}

func staticFileSystem(assetsDir string) (http.FileSystem, error) {
	if assetsDir != "" {
		info, err := os.Stat(assetsDir)
		if err != nil {
			return nil, fmt.Errorf("assets directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("assets directory: %s is not a directory", assetsDir)
		}
		return http.Dir(assetsDir), nil
	}

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("embedded assets: %w", err)
	}
	return http.FS(staticFS), nil
}

// Start serves on the given port until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	// Ends the open event streams so Shutdown does not wait on them
	if err := s.publisher.Close(); err != nil {
		logging.Warn("failed to close publisher", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}
