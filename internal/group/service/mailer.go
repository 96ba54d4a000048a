package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

// Mailer delivers invitation secrets. Delivery is the only channel the secret
// ever takes; it is never returned over the API.
type Mailer interface {
	SendInvitation(ctx context.Context, email string, inviter cryptox.Identity, secretCode string) error
}

// LogMailer is the default Mailer. It logs that a delivery would happen
// without the secret itself. Real SMTP delivery is deployment-specific and
// plugs in behind the same interface.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendInvitation(ctx context.Context, email string, inviter cryptox.Identity, secretCode string) error {
	m.Logger.Info("invitation email queued",
		slog.String("email", email),
		slog.String("inviter", string(inviter)),
		slog.Int("secret_len", len(secretCode)),
	)
	return nil
}
