// Package api provides HTTP handlers for the survey line server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
	"github.com/mcgarnagle38/geophys-utils/internal/geometry"
	"github.com/mcgarnagle38/geophys-utils/internal/lines"
	"github.com/mcgarnagle38/geophys-utils/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *SurveyRegistry
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global surveys endpoint (not survey-scoped)
	r.Get("/api/surveys", surveysHandler(cfg.Registry))

	// Survey-scoped routes: /d/{survey}/...
	r.Route("/d/{survey}", func(r chi.Router) {
		r.Use(surveyMiddleware(cfg.Registry))
		mountSurveyRoutes(r)
	})

	// Default-survey aliases at /api/...
	r.Route("/api", func(r chi.Router) {
		r.Use(defaultSurveyMiddleware(cfg.Registry))
		mountSurveyAPI(r)
	})

	return r
}

func mountSurveyRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		mountSurveyAPI(r)
	})
}

func mountSurveyAPI(r chi.Router) {
	r.Get("/metadata", surveyMetadataHandler)
	r.Get("/lines", surveyLinesHandler)
	r.Get("/line_index/stats", surveyLineStatsHandler)
	r.Get("/query", surveyQueryHandler)
	r.Get("/sample_points", surveySamplePointsHandler)
	r.Get("/geometry/multiline", surveyMultiLineHandler)
	r.Get("/geometry/hull/convex", surveyConvexHullHandler)
	r.Get("/geometry/hull/concave", surveyConcaveHullHandler)
	r.Get("/geometry/hull/concave.png", surveyHullQuicklookHandler)
	r.Get("/quicklook.png", surveyQuicklookHandler)
	r.Post("/repair", surveyRepairHandler)
}

type contextKey string

const surveyServiceKey contextKey = "surveyService"

func surveyMiddleware(registry *SurveyRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			surveyID := chi.URLParam(r, "survey")
			svc := registry.Get(surveyID)
			if svc == nil {
				http.Error(w, "survey not found: "+surveyID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), surveyServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func defaultSurveyMiddleware(registry *SurveyRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc := registry.Default()
			if svc == nil {
				http.Error(w, "no default survey configured", http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), surveyServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getSurveyService(r *http.Request) *service.LineService {
	svc, _ := r.Context().Value(surveyServiceKey).(*service.LineService)
	return svc
}

func surveysHandler(registry *SurveyRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"surveys": registry.Surveys(),
			"default": registry.DefaultSurveyID(),
		})
	}
}

func surveyMetadataHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	meta, err := svc.Metadata()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meta)
}

func surveyLinesHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	line, err := svc.Lines()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"lines": line})
}

func surveyLineStatsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	stats, err := svc.LineStats()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"lines": stats})
}

func surveyQueryHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)

	var opts lines.QueryOptions
	var err error
	if opts.Lines, err = parseLineList(r.URL.Query().Get("lines")); err != nil {
		http.Error(w, "invalid lines: "+err.Error(), http.StatusBadRequest)
		return
	}
	if v := r.URL.Query().Get("variables"); v != "" {
		opts.Variables = strings.Split(v, ",")
	}
	if opts.Bounds, err = parseBounds(r.URL.Query().Get("bounds")); err != nil {
		http.Error(w, "invalid bounds: "+err.Error(), http.StatusBadRequest)
		return
	}
	if v := r.URL.Query().Get("subsampling_distance"); v != "" {
		if opts.SubsamplingDistance, err = strconv.ParseFloat(v, 64); err != nil {
			http.Error(w, "invalid subsampling_distance", http.StatusBadRequest)
			return
		}
	}
	opts.Contiguous = r.URL.Query().Get("contiguous") == "true"

	results, err := svc.Query(opts)
	if err != nil {
		writeError(w, err)
		return
	}

	type lineResult struct {
		Line        int32                `json:"line"`
		Coordinates [][2]float64         `json:"coordinates"`
		Variables   map[string][]float64 `json:"variables"`
	}
	response := make([]lineResult, len(results))
	for i, res := range results {
		response[i] = lineResult{
			Line:        res.Line,
			Coordinates: res.Coordinates,
			Variables:   res.Variables,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"results": response})
}

func surveySamplePointsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)

	divisions := 10
	if v := r.URL.Query().Get("divisions"); v != "" {
		var err error
		if divisions, err = strconv.Atoi(v); err != nil || divisions < 1 {
			http.Error(w, "invalid divisions", http.StatusBadRequest)
			return
		}
	}

	pts, err := svc.SamplePoints(divisions)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"points": pts})
}

func surveyMultiLineHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)

	tolerance := 0.0
	if v := r.URL.Query().Get("tolerance"); v != "" {
		var err error
		if tolerance, err = strconv.ParseFloat(v, 64); err != nil {
			http.Error(w, "invalid tolerance", http.StatusBadRequest)
			return
		}
	}

	data, err := svc.MultiLineGeoJSON(tolerance)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func surveyConvexHullHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	data, err := svc.ConvexHullGeoJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// parseHullOverrides reads per-request hull parameters. Absent query keys
// stay nil so the configured defaults apply; an explicit value, zero
// included, takes effect.
func parseHullOverrides(q url.Values) (service.HullOverrides, error) {
	var overrides service.HullOverrides
	floats := map[string]**float64{
		"buffer_distance": &overrides.BufferDistance,
		"offset":          &overrides.Offset,
		"tolerance":       &overrides.Tolerance,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return overrides, errors.New("invalid " + name)
			}
			*dst = &f
		}
	}
	ints := map[string]**int{
		"max_polygons": &overrides.MaxPolygons,
		"max_vertices": &overrides.MaxVertices,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return overrides, errors.New("invalid " + name)
			}
			*dst = &n
		}
	}
	return overrides, nil
}

func surveyConcaveHullHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)

	overrides, err := parseHullOverrides(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := svc.ConcaveHullGeoJSON(overrides)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func surveyHullQuicklookHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)

	overrides, err := parseHullOverrides(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := svc.HullQuicklook(overrides)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func surveyQuicklookHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	png, err := svc.Quicklook()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func surveyRepairHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSurveyService(r)
	report, err := svc.Repair()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// parseLineList parses a comma-separated list of line numbers. Empty input
// means all lines.
func parseLineList(raw string) ([]int32, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int32, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int32(n)
	}
	return out, nil
}

// parseBounds parses "min_x,min_y,max_x,max_y". Empty input means no bounds.
func parseBounds(raw string) (*survey.Bounds, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, errors.New("expected min_x,min_y,max_x,max_y")
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = f
	}
	return &survey.Bounds{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lines.ErrPrecondition), errors.Is(err, geometry.ErrPrecondition):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, survey.ErrLegacyIndexFormat), errors.Is(err, survey.ErrUnsupported):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, survey.ErrMissingVariable):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
