package graphql

import (
	"encoding/json"
	"net/http"
	"time"

	apiconfig "fsi_kpi/pkg/api/config"
	"fsi_kpi/pkg/core/logger"

	"github.com/graph-gophers/graphql-go/relay"
	"github.com/julienschmidt/httprouter"
)

// Server wires the GraphQL endpoint and the provider config endpoints.
type Server struct {
	Resolver *Resolver
	Config   *apiconfig.Handler // optional
}

// Routes builds the router:
//
//	GET  /                    welcome message
//	POST /graphql             GraphQL endpoint
//	GET  /api/config          active LLM provider
//	POST /api/config/switch   switch LLM provider
func (s *Server) Routes() (http.Handler, error) {
	schema, err := NewSchema(s.Resolver)
	if err != nil {
		return nil, err
	}

	router := httprouter.New()
	router.GET("/", welcome)
	router.Handler(http.MethodPost, "/graphql", &relay.Handler{Schema: schema})
	if s.Config != nil {
		router.HandlerFunc(http.MethodGet, "/api/config", s.Config.HandleConfig)
		router.HandlerFunc(http.MethodPost, "/api/config/switch", s.Config.HandleSwitch)
	}
	router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return requestLogging(cors(router)), nil
}

func welcome(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Financial KPI GraphQL API. POST queries to /graphql.",
	})
}

// cors allows any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
