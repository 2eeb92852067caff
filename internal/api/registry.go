package api

import (
	"github.com/mcgarnagle38/geophys-utils/internal/service"
)

// SurveyInfo describes one registered survey for the listing endpoint.
type SurveyInfo struct {
	ID         string `json:"id"`
	PointCount int    `json:"point_count"`
}

// SurveyRegistry holds line services for all configured surveys.
type SurveyRegistry struct {
	services      map[string]*service.LineService
	defaultSurvey string
	surveyOrder   []string
}

// NewSurveyRegistry creates a new survey registry.
func NewSurveyRegistry(defaultSurvey string, order []string) *SurveyRegistry {
	return &SurveyRegistry{
		services:      make(map[string]*service.LineService),
		defaultSurvey: defaultSurvey,
		surveyOrder:   order,
	}
}

// Register adds a line service for a survey.
func (r *SurveyRegistry) Register(surveyID string, svc *service.LineService) {
	r.services[surveyID] = svc
}

// Get returns the line service for a survey, or nil if not found.
func (r *SurveyRegistry) Get(surveyID string) *service.LineService {
	return r.services[surveyID]
}

// Default returns the default survey's line service.
func (r *SurveyRegistry) Default() *service.LineService {
	return r.services[r.defaultSurvey]
}

// DefaultSurveyID returns the default survey ID.
func (r *SurveyRegistry) DefaultSurveyID() string {
	return r.defaultSurvey
}

// SurveyIDs returns all survey IDs in config order.
func (r *SurveyRegistry) SurveyIDs() []string {
	return r.surveyOrder
}

// Surveys returns info for all registered surveys.
func (r *SurveyRegistry) Surveys() []SurveyInfo {
	infos := make([]SurveyInfo, 0, len(r.surveyOrder))
	for _, id := range r.surveyOrder {
		svc := r.services[id]
		if svc == nil {
			continue
		}
		infos = append(infos, SurveyInfo{
			ID:         id,
			PointCount: svc.Dataset().PointCount(),
		})
	}
	return infos
}
