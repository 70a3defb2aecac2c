// Package classifier calls the external roof-condition classifier.
package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/models"
)

// Metadata describes the image handed to the classifier.
type Metadata struct {
	DossierID       string  `json:"dossier_id"`
	PropertyID      string  `json:"property_id"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Source          string  `json:"source"`
	Placeholder     bool    `json:"placeholder"`
	RotationDegrees float64 `json:"rotation_degrees"`
	CoverageRatio   float64 `json:"coverage_ratio"`
}

// Classifier is the roof-condition capability.
type Classifier interface {
	Classify(ctx context.Context, image []byte, meta Metadata) (models.RoofCondition, error)
}

// Noop returns the default condition without calling anything.
type Noop struct{}

func (Noop) Classify(context.Context, []byte, Metadata) (models.RoofCondition, error) {
	return models.DefaultRoofCondition(), nil
}

// HTTPClassifier posts the image as JSON to a classification endpoint.
type HTTPClassifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClassifier creates a classifier client for endpoint.
func NewHTTPClassifier(endpoint, apiKey string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewHTTPClassifierWithClient wraps an existing client, typically an httptest server's.
func NewHTTPClassifierWithClient(endpoint, apiKey string, client *http.Client) *HTTPClassifier {
	return &HTTPClassifier{endpoint: endpoint, apiKey: apiKey, httpClient: client}
}

type classifyRequest struct {
	Image       string   `json:"image_base64"`
	ContentType string   `json:"content_type"`
	Metadata    Metadata `json:"metadata"`
}

// Classify sends the image and normalizes the response ranges.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte, meta Metadata) (models.RoofCondition, error) {
	if len(image) == 0 {
		return models.RoofCondition{}, apperrors.NewValidationError("no image to classify", nil)
	}

	_, contentType, err := imaging.Decode(image)
	if err != nil {
		return models.RoofCondition{}, apperrors.NewValidationError("image is not decodable", err)
	}

	body, err := json.Marshal(classifyRequest{
		Image:       base64.StdEncoding.EncodeToString(image),
		ContentType: contentType,
		Metadata:    meta,
	})
	if err != nil {
		return models.RoofCondition{}, apperrors.NewInternalError("failed to marshal classify request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.RoofCondition{}, apperrors.NewClassificationError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.RoofCondition{}, apperrors.NewClassificationError("failed to send request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.RoofCondition{}, apperrors.NewClassificationError("failed to read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.RoofCondition{}, apperrors.NewClassificationError(
			fmt.Sprintf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var cond models.RoofCondition
	if err := json.Unmarshal(respBody, &cond); err != nil {
		return models.RoofCondition{}, apperrors.NewClassificationError("malformed classifier response", err)
	}
	return normalize(cond), nil
}

// normalize clamps scores into range and fills empty fields.
func normalize(c models.RoofCondition) models.RoofCondition {
	c.ConditionScore = imaging.Clamp(c.ConditionScore, 0, 100)
	c.Confidence = imaging.Clamp01(c.Confidence)
	if c.DamageIndicators == nil {
		c.DamageIndicators = []string{}
	}
	if c.ReplacementUrgency == "" {
		c.ReplacementUrgency = models.UrgencyUnknown
	}
	return c
}
