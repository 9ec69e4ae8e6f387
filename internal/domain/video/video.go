// Package video mints meeting links for video consultations.
package video

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

type Provider string

const (
	ProviderGoogleMeet Provider = "google_meet"
	ProviderZoom       Provider = "zoom"
	ProviderInternal   Provider = "internal"
)

const defaultBaseURL = "https://video-consultation.example.com"

type Config struct {
	GoogleServiceAccountFile string
	FallbackService          string
	ZoomAPIKey               string
	ZoomAPISecret            string
	BaseURL                  string
}

// Minter produces a joinable link for an appointment. It falls back through
// Google Meet, Zoom and the internal base URL and never fails.
type Minter struct {
	cfg    Config
	fs     afero.Fs
	logger zerolog.Logger
}

// NewMinter reads the Google credential file through fs; pass
// afero.NewOsFs() in production.
func NewMinter(cfg Config, fs afero.Fs, logger zerolog.Logger) *Minter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Minter{cfg: cfg, fs: fs, logger: logger}
}

func (m *Minter) Mint(ctx context.Context, appointmentID int64) (string, Provider) {
	if m.cfg.GoogleServiceAccountFile != "" {
		link, err := m.googleMeet(appointmentID)
		if err == nil {
			return link, ProviderGoogleMeet
		}
		m.logger.Warn().Err(err).Int64("appointment_id", appointmentID).Msg("google meet unavailable, falling back")
	}
	if m.cfg.FallbackService == "zoom" && m.cfg.ZoomAPIKey != "" && m.cfg.ZoomAPISecret != "" {
		return fmt.Sprintf("https://zoom.us/j/mock-%d", appointmentID), ProviderZoom
	}
	return fmt.Sprintf("%s/%d", m.cfg.BaseURL, appointmentID), ProviderInternal
}

func (m *Minter) googleMeet(appointmentID int64) (string, error) {
	data, err := afero.ReadFile(m.fs, m.cfg.GoogleServiceAccountFile)
	if err != nil {
		return "", fmt.Errorf("read service account file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("service account file %s is empty", m.cfg.GoogleServiceAccountFile)
	}
	return fmt.Sprintf("https://meet.google.com/mock-%d", appointmentID), nil
}
