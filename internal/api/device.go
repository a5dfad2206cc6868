package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// handleDeviceConfig serves the configuration the device should apply.
func (s *Server) handleDeviceConfig(w http.ResponseWriter, r *http.Request) {
	cfg, found, err := s.gateway.Config(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "load device config", err)
		return
	}

	message := "Configuration retrieved successfully"
	if !found {
		message = "Default configuration"
	}
	writeSuccess(w, http.StatusOK, message, cfg)
}

// handleDeviceLog stores a reading reported by the device.
func (s *Server) handleDeviceLog(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}

	reading, err := lighting.ParseReading(body)
	if err != nil {
		s.writeServiceError(w, r, "parse sensor reading", err)
		return
	}

	log, err := s.gateway.RecordReading(r.Context(), reading)
	if err != nil {
		s.writeServiceError(w, r, "record sensor reading", err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Sensor log saved successfully", struct {
		ID         int64     `json:"id"`
		LightValue int       `json:"lightValue"`
		LampStatus bool      `json:"lampStatus"`
		Timestamp  time.Time `json:"timestamp"`
	}{log.ID, log.LightValue, log.LampStatus, log.CreatedAt})
}
