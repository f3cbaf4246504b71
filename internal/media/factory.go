package media

import (
	"fmt"

	"catalog/internal/config"
)

// NewHost builds the host selected by MEDIA_DRIVER.
func NewHost(cfg *config.Config) (Host, error) {
	switch cfg.MediaDriver {
	case config.MediaDriverCloudinary:
		return NewCloudinaryHost(cfg)
	case config.MediaDriverLocal, "":
		return NewLocalHost(cfg.MediaLocalDir, cfg.MediaPublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.MediaDriver)
	}
}
