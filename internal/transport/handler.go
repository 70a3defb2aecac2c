package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-roof-inspector/internal/config"
	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/geo"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/pipeline"
	"go-roof-inspector/internal/ratelimit"
	"go-roof-inspector/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// DossierService builds analysis dossiers.
type DossierService interface {
	AnalyzeWithOptions(ctx context.Context, in pipeline.AnalyzeInput, opts pipeline.AnalysisOptions) (*models.AnalysisDossier, error)
}

func NewHandler(svc DossierService, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.Server.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	if n := cfg.Server.ClientRequestsPerMinute; n > 0 {
		v1.Use(ratelimit.Middleware(n, time.Minute))
	}
	v1.POST("/dossiers", createDossier(svc, cfg))

	return r
}

func createDossier(svc DossierService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Server.AnalysisTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing dossier request")

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "invalid request format",
				apperrors.NewValidationError("malformed request body", err))
			return
		}

		opts, err := optionsFromQuery(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid query", err)
			return
		}

		dossier, err := svc.AnalyzeWithOptions(ctx, pipeline.AnalyzeInput{
			PropertyID:       req.PropertyID,
			Lat:              *req.Lat,
			Lon:              *req.Lon,
			Profile:          req.Profile,
			EnableStreetView: req.EnableStreetView,
		}, opts)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				err = apperrors.NewTimeoutError("analysis deadline exceeded", err)
			}
			respondError(c, determineStatusCode(err), "analysis failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"dossier_id":         dossier.ID,
			"property_id":        dossier.PropertyID,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"anomalies":          len(dossier.Anomalies.Anomalies),
			"street_views":       len(dossier.StreetView),
			"degraded_stages":    dossier.DegradedStages,
		}).Info("Dossier request completed")

		if c.Query("format") == "geojson" {
			body, err := geo.DossierFeatureCollection(dossier).MarshalJSON()
			if err != nil {
				respondError(c, http.StatusInternalServerError, "geojson encoding failed",
					apperrors.NewInternalError("geojson encoding failed", err))
				return
			}
			c.Data(http.StatusOK, "application/geo+json", body)
			return
		}

		c.JSON(http.StatusOK, dossier)
	}
}

// optionsFromQuery maps ?fast=true and ?max_angles=N onto analysis options.
func optionsFromQuery(c *gin.Context) (pipeline.AnalysisOptions, error) {
	opts := pipeline.DefaultOptions()
	if c.Query("fast") == "true" {
		opts = pipeline.FastOptions()
	}
	if raw := c.Query("max_angles"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, apperrors.NewValidationError(fmt.Sprintf("max_angles must be a non-negative integer (got %q)", raw), err)
		}
		opts = opts.WithMaxStreetViewAngles(n)
	}
	return opts, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
	}
	c.AbortWithStatusJSON(code, resp)
}
