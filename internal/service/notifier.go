package service

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers signed tokens to the owner of an email address.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Tokens are only included when exposeTokens is set.
type LogNotifier struct {
	logger       *zap.Logger
	exposeTokens bool
}

func NewLogNotifier(logger *zap.Logger, exposeTokens bool) *LogNotifier {
	return &LogNotifier{logger: logger, exposeTokens: exposeTokens}
}

func (n *LogNotifier) SendConfirmation(_ context.Context, email, token string) error {
	n.logger.Info("Confirmation requested", n.fields(email, token)...)
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.logger.Info("Password reset requested", n.fields(email, token)...)
	return nil
}

func (n *LogNotifier) fields(email, token string) []zap.Field {
	fields := []zap.Field{zap.String("email", email)}
	if n.exposeTokens {
		fields = append(fields, zap.String("token", token))
	}
	return fields
}
