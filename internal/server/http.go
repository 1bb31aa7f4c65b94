package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/transmeralda/fleetdocs/internal/export"
	"github.com/transmeralda/fleetdocs/internal/intake"
	"github.com/transmeralda/fleetdocs/internal/notify"
)

// maxUploadBytes caps one submission's in-memory multipart size.
const maxUploadBytes = 64 << 20

// Server is the HTTP surface: document submission, session polling,
// exports, and the realtime notification socket.
type Server struct {
	intake *intake.Service
	export *export.Service
	hub    *notify.Hub
	logger *slog.Logger
	mux    *http.ServeMux
}

func New(intakeSvc *intake.Service, exportSvc *export.Service, hub *notify.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{intake: intakeSvc, export: exportSvc, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/drivers", s.handleCreate)
	s.mux.HandleFunc("POST /api/drivers/{id}/documents", s.handleUpdate)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleStatus)
	s.mux.HandleFunc("GET /api/exports/drivers.xlsx", s.handleExport)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.hub != nil {
		s.mux.Handle("GET /ws", s.hub)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, uploads, overrides, err := s.parseSubmission(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessionID, err := s.intake.Create(r.Context(), intake.CreateSubmission{
		UserID: userID, Uploads: uploads, Overrides: overrides,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, status.Error(codes.InvalidArgument, "invalid driver id"))
		return
	}
	userID, uploads, overrides, err := s.parseSubmission(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessionID, err := s.intake.Update(r.Context(), intake.UpdateSubmission{
		UserID: userID, DriverID: driverID, Uploads: uploads, Overrides: overrides,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.intake.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.export.ExportDriversXLSX(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="drivers.xlsx"`)
	_, _ = w.Write(out)
}

// parseSubmission reads the multipart form: documents[] files, a
// parallel categories[] list, a user_id, and an optional overrides
// JSON object.
func (s *Server) parseSubmission(r *http.Request) (uuid.UUID, []intake.Upload, map[string]any, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return uuid.Nil, nil, nil, status.Error(codes.InvalidArgument, "malformed multipart form")
	}
	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		return uuid.Nil, nil, nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	files := r.MultipartForm.File["documents"]
	categories := r.MultipartForm.Value["categories"]
	if len(files) != len(categories) {
		return uuid.Nil, nil, nil, status.Errorf(codes.InvalidArgument,
			"got %d documents but %d categories", len(files), len(categories))
	}

	uploads := make([]intake.Upload, 0, len(files))
	for i, fh := range files {
		content, err := readPart(fh)
		if err != nil {
			return uuid.Nil, nil, nil, status.Errorf(codes.InvalidArgument, "unreadable document %q", fh.Filename)
		}
		uploads = append(uploads, intake.Upload{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Category: categories[i],
			Content:  content,
		})
	}

	var overrides map[string]any
	if raw := strings.TrimSpace(r.FormValue("overrides")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return uuid.Nil, nil, nil, status.Error(codes.InvalidArgument, "overrides must be a JSON object")
		}
	}
	return userID, uploads, overrides, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.encode_response_failed", "error", err)
	}
}

// writeError maps status codes from the service layer onto HTTP.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	st, ok := status.FromError(err)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	var code int
	switch st.Code() {
	case codes.InvalidArgument:
		code = http.StatusBadRequest
	case codes.NotFound:
		code = http.StatusNotFound
	default:
		code = http.StatusInternalServerError
		s.logger.Error("server.internal_error", "error", err)
	}
	s.writeJSON(w, code, map[string]string{"error": st.Message()})
}
