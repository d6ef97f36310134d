package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/imagestore"
	"github.com/Brownie44l1/attack-lab/internal/logging"
	"github.com/Brownie44l1/attack-lab/internal/predictor"
	"github.com/Brownie44l1/attack-lab/internal/telemetry"
)

// PredictionRequest is the body of /predict and /render.
type PredictionRequest struct {
	Path    string          `json:"path"`
	Attacks attack.Sequence `json:"attacks"`
}

type Handler struct {
	service        *predictor.Service
	maxUploadBytes int64
	previewMaxSide int
}

func NewHandler(service *predictor.Service, maxUploadMB, previewMaxSide int) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: int64(maxUploadMB) << 20,
		previewMaxSide: previewMaxSide,
	}
}

// withRequestID tags each request with a fresh id, echoed in X-Request-ID and
// attached to every log line for that request.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		l := logging.L().With("request_id", id, "endpoint", r.URL.Path)
		next(w, r.WithContext(logging.WithContext(r.Context(), l)))
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Attacks lists the supported attack identifiers.
func (h *Handler) Attacks(w http.ResponseWriter, r *http.Request) {
	kinds := attack.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	const endpoint = "predict"
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	result, err := h.service.Predict(r.Context(), req.Path, req.Attacks)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	telemetry.ObserveRequest(endpoint, "ok")
	logging.FromContext(r.Context()).Info("predicted",
		"path", req.Path,
		"attacks", len(req.Attacks.Active()),
		"top", result[0].ClassName,
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	const endpoint = "predict_image"
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.fail(w, r, endpoint, badRequest("Failed to parse form"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.fail(w, r, endpoint, badRequest("No image file provided. Use 'image' as the form field name"))
		return
	}
	defer file.Close()

	var seq attack.Sequence
	if raw := r.FormValue("attacks"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &seq); err != nil {
			h.fail(w, r, endpoint, requestError(err))
			return
		}
	}

	img, err := imagestore.Decode(file)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	logging.FromContext(r.Context()).Debug("upload decoded",
		"file", header.Filename,
		"bytes", header.Size,
		"height", img.H,
		"width", img.W,
	)

	result, err := h.service.PredictImage(r.Context(), img, header.Filename, seq)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	telemetry.ObserveRequest(endpoint, "ok")
	writeJSON(w, http.StatusOK, result)
}

// Render responds with the perturbed image as PNG.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	const endpoint = "render"
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	img, err := h.service.Render(r.Context(), req.Path, req.Attacks)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	var buf bytes.Buffer
	if err := imagestore.EncodePNG(&buf, img, h.previewMaxSide); err != nil {
		h.fail(w, r, endpoint, err)
		return
	}

	telemetry.ObserveRequest(endpoint, "ok")
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func decodeRequest(r *http.Request) (PredictionRequest, error) {
	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, requestError(err)
	}
	if req.Path == "" {
		return req, badRequest("path is required")
	}
	return req, nil
}

// clientError carries a message that is safe to show the caller.
type clientError struct {
	msg string
	err error
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.err }

func badRequest(msg string) error {
	return &clientError{msg: msg}
}

// requestError keeps unknown-attack errors recognisable and turns any other
// decode failure into a generic bad request.
func requestError(err error) error {
	if errors.Is(err, attack.ErrUnknownAttack) {
		return err
	}
	return &clientError{msg: "Invalid JSON", err: err}
}

func statusFor(err error) int {
	var ce *clientError
	switch {
	case errors.As(err, &ce),
		errors.Is(err, attack.ErrUnknownAttack),
		errors.Is(err, imagestore.ErrOutsideRoot):
		return http.StatusBadRequest
	case errors.Is(err, imagestore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, imagestore.ErrNotRGB), errors.Is(err, attack.ErrChannels):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := statusFor(err)
	telemetry.ObserveRequest(endpoint, fmt.Sprint(status))

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		msg = "Prediction failed"
	} else {
		logging.FromContext(r.Context()).Warn("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
