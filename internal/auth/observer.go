package auth

import (
	"context"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer is told about session changes. Implementations must not block.
type Observer interface {
	OnSignedIn(ctx context.Context, user *models.User)
	OnSignedOut(ctx context.Context, userID uuid.UUID, role models.Role)
}

// LogObserver writes session changes to the application log
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnSignedIn(_ context.Context, user *models.User) {
	o.logger.Info("User signed in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.UserType)),
	)
}

func (o *LogObserver) OnSignedOut(_ context.Context, userID uuid.UUID, role models.Role) {
	o.logger.Info("User signed out",
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
	)
}

// MetricsObserver counts session changes
type MetricsObserver struct{}

func (MetricsObserver) OnSignedIn(_ context.Context, user *models.User) {
	util.AuthEventsTotal.WithLabelValues("signed_in", string(user.UserType)).Inc()
}

func (MetricsObserver) OnSignedOut(_ context.Context, _ uuid.UUID, role models.Role) {
	util.AuthEventsTotal.WithLabelValues("signed_out", string(role)).Inc()
}
