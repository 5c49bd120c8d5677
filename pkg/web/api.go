package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/flow-builder/pkg/flow"
	"github.com/ritzau/flow-builder/pkg/flowfile"
	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/ritzau/flow-builder/pkg/session"
	"github.com/ritzau/flow-builder/pkg/validation"
)

// saveResponse is the body of POST /api/save for both outcomes
type saveResponse struct {
	Saved      bool                  `json:"saved"`
	SavedAt    *time.Time            `json:"savedAt,omitempty"`
	Stats      *validation.FlowStats `json:"stats,omitempty"`
	Message    string                `json:"message,omitempty"`
	EntryNodes []string              `json:"entryNodes,omitempty"`
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.Palette())
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.session.State())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.session.Stats())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := flowfile.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := flowfile.Encode(&buf, s.session.Snapshot(), format); err != nil {
		logging.ErrorContext(r.Context(), "failed to export flow", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to export flow")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="flow.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDropNode(w http.ResponseWriter, r *http.Request) {
	var req dropNodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	node, err := s.session.DropNode(r.Context(), req.Type, *req.Position)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, node)
}

func (s *Server) handlePatchNodeData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	raw, err := readRawObject(r)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	node, err := s.session.PatchNodeData(r.Context(), id, raw)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, node)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req positionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	node, err := s.session.MoveNode(r.Context(), id, model.Position{X: *req.X, Y: *req.Y})
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, node)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveNode(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var conn model.Connection
	if err := decodeBody(r, &conn); err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	edge, err := s.session.Connect(r.Context(), conn)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, edge)
}

func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveEdge(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	node, err := s.session.Select(req.NodeID)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, node)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	s.session.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissBanner(w http.ResponseWriter, r *http.Request) {
	s.session.DismissBanner()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	report, err := s.session.Save(r.Context())

	var topologyErr *validation.InvalidEntryTopologyError
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, saveResponse{
			Saved:   true,
			SavedAt: &report.SavedAt,
			Stats:   &report.Stats,
		})
	case errors.As(err, &topologyErr):
		writeJSON(w, r, http.StatusUnprocessableEntity, saveResponse{
			Saved:      false,
			Message:    topologyErr.Error(),
			EntryNodes: topologyErr.EntryNodes,
		})
	default:
		s.writeSessionError(w, r, err)
	}
}

// writeSessionError maps editor errors to status codes
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq  *badRequestError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &badReq):
		writeError(w, r, http.StatusBadRequest, badReq.Error())
	case errors.Is(err, flow.ErrNodeNotFound), errors.Is(err, flow.ErrEdgeNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, flow.ErrDuplicateOutgoingConnection):
		writeError(w, r, http.StatusConflict, session.DuplicateConnectionMessage)
	case errors.Is(err, model.ErrUnknownNodeType),
		errors.Is(err, model.ErrPatchTypeMismatch),
		errors.As(err, &typeErr):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logging.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
