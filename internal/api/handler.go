package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/notes-bin/gallery/internal/auth"
	"github.com/notes-bin/gallery/internal/config"
	"github.com/notes-bin/gallery/internal/gallery"
	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/service"
	"github.com/notes-bin/gallery/internal/storage"
	"github.com/notes-bin/gallery/web"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/heptiolabs/healthcheck"
)

// multipart 头部和其它字段的余量
const formOverhead = 1 << 20

type Handler struct {
	config   *config.Config
	auth     *auth.Auth
	uploader *service.Uploader
	gallery  *service.Gallery
	metrics  *metrics.Metrics
}

func NewHandler(config *config.Config, auth *auth.Auth, uploader *service.Uploader, gallery *service.Gallery, metrics *metrics.Metrics) *Handler {
	return &Handler{config: config, auth: auth, uploader: uploader, gallery: gallery, metrics: metrics}
}

// Deps are the long-lived components the router is built on.
type Deps struct {
	Repo    repository.Repository
	Storage *storage.Storage
	Metrics *metrics.Metrics
}

func SetupRouter(config *config.Config, deps Deps) http.Handler {
	authService := auth.NewAuth(config.JWTSecret)
	uploader, err := service.NewUploader(service.UploadOptions{
		ContentDir:        deps.Storage.Dir(),
		PublicPrefix:      "uploads",
		MaxFileBytes:      config.MaxUploadSize,
		AllowedTypes:      config.AllowedTypes,
		AllowedExtensions: config.AllowedExtensions,
	}, deps.Repo, deps.Metrics)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	galleryService := service.NewGallery(deps.Repo, deps.Storage, deps.Metrics)
	h := NewHandler(config, authService, uploader, galleryService, deps.Metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(h.MetricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(config.RateLimit.Requests, config.RateLimit.Duration))
		r.Get("/images", h.ListImages)

		// 写操作, 配置了 jwt_secret 时需要令牌
		r.Group(func(r chi.Router) {
			if authService.Enabled() {
				r.Use(h.AuthMiddleware)
			}
			r.Post("/images", h.UploadImage)
			r.Delete("/images/{id}", h.DeleteImage)
		})
	})

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	health.AddReadinessCheck("store", healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Repo.Ping(ctx)
	}, 3*time.Second))
	health.AddReadinessCheck("upload-dir", func() error {
		_, err := os.Stat(deps.Storage.Dir())
		return err
	})
	r.Get("/live", health.LiveEndpoint)
	r.Get("/ready", health.ReadyEndpoint)
	r.Handle("/metrics", deps.Metrics.Handler())

	// 上传目录与页面资源
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.Storage.Dir()))))
	r.Handle("/*", http.FileServerFS(web.Static()))

	return r
}

func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	mode, err := gallery.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	images, err := h.gallery.List(r.Context(), service.Query{
		Search: r.URL.Query().Get("q"),
		Sort:   mode,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, images)
}

type uploadResponse struct {
	model.Image
	Message string `json:"message"`
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize+formOverhead)

	// 流式读取, 先看文件名和类型再读内容
	in := service.UploadInput{Size: -1}
	part, err := imagePart(r)
	if err != nil {
		if isBodyTooLarge(err) {
			respondServiceError(w, service.PayloadTooLarge(h.config.MaxUploadSize))
			return
		}
		// 非 multipart 请求按未提供文件处理
		slog.Debug("Failed to read upload form", "error", err)
	}
	if part != nil {
		defer part.Close()
		in = service.UploadInput{
			Name:     part.FileName(),
			MimeType: part.Header.Get("Content-Type"),
			Size:     -1,
			Body:     part,
		}
	}

	img, err := h.uploader.Upload(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrStorage) && isBodyTooLarge(err) {
			err = service.PayloadTooLarge(h.config.MaxUploadSize)
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, uploadResponse{Image: *img, Message: "Image added successfully"})
}

// imagePart returns the first file part named "image", or nil when the form
// has none.
func imagePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "image" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err := h.gallery.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted successfully"})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// statusFor maps service error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	var svcErr *service.Error
	if errors.As(err, &svcErr) && status != http.StatusInternalServerError {
		message = svcErr.Message
	}
	respondError(w, status, message)
}

func respondError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", status, "error", message)
	} else {
		slog.Warn("Request rejected", "status", status, "error", message)
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
