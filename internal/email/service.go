package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

// Service notifies a caregiver when a reminder has escalated to the top
// level without acknowledgment.
type Service interface {
	SendEscalationAlert(ctx context.Context, medicineName string, level int, activeSince time.Time) error
}

type service struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewService(cfg config.EmailConfig, logger *logger.Logger) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &service{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger.WithComponent("email"),
	}
}

func (s *service) SendEscalationAlert(_ context.Context, medicineName string, level int, activeSince time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.Caregiver)
	m.SetHeader("Subject", fmt.Sprintf("Medication alert: %s still not taken", medicineName))
	m.SetBody("text/plain", fmt.Sprintf(
		"The reminder for %s has been escalating since %s and reached level %d without a confirmation.\n"+
			"Please check in.\n",
		medicineName, activeSince.Format(time.RFC1123), level,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send caregiver alert: %w", err)
	}
	s.logger.Info("caregiver alert sent", "medicine", medicineName, "level", level)
	return nil
}

// noopService keeps the engine wiring uniform when alerts are disabled.
type noopService struct{}

func (n *noopService) SendEscalationAlert(context.Context, string, int, time.Time) error {
	return nil
}
