package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// RouterConfig はルーター構築時の依存関係です。
type RouterConfig struct {
	Employees      employee.UseCase
	Departments    department.UseCase
	Logger         logrus.FieldLogger
	AllowedOrigins []string
	// AllowCredentials は Access-Control-Allow-Credentials を返すかどうかです。
	AllowCredentials bool
	// MetricsPath が空の場合はメトリクスを公開しません。
	MetricsPath string
}

// NewRouter は API 全体の http.Handler を構築します。
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := mux.NewRouter()
	r.Use(requestID, observe(logger))

	NewEmployeeHandler(cfg.Employees, logger).Register(r)
	NewDepartmentHandler(cfg.Departments, logger).Register(r)

	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	}))
	r.MethodNotAllowedHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}))

	return newCORS(cfg.AllowedOrigins, cfg.AllowCredentials).Handler(optionsOK(r))
}

func newCORS(origins []string, allowCredentials bool) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		ExposedHeaders:       []string{"Content-Length", "Content-Type"},
		AllowCredentials:     allowCredentials,
		OptionsSuccessStatus: http.StatusOK,
	})
}

// optionsOK はプリフライト以外の OPTIONS にも空ボディの 200 を返します。
func optionsOK(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
