package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "mergington-activities/internal/common/errors"
	"mergington-activities/internal/common/logger"
	"mergington-activities/internal/common/metrics"
	"mergington-activities/internal/common/validation"

	"github.com/google/uuid"
)

// Options toggles the signup rules that are off by default.
type Options struct {
	// EnforceCapacity rejects signups once the roster reaches MaxParticipants.
	EnforceCapacity bool
	// ValidateEmail rejects addresses that are not well formed.
	ValidateEmail bool
}

// Registry is the activity registry. It owns the signup rules and delegates
// state to a Store; it is safe for concurrent use when the Store is.
type Registry struct {
	store    Store
	opts     Options
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

func NewRegistry(store Store, opts Options, notifier Notifier, log logger.Logger) *Registry {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Registry{
		store:    store,
		opts:     opts,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "registry"}),
		now:      time.Now,
	}
}

// Seed inserts the given activities that the store does not know yet.
func (r *Registry) Seed(ctx context.Context, activities []Activity) (int, error) {
	added, err := r.store.Seed(ctx, activities)
	if err != nil {
		return 0, apperrors.NewStorageFailedError("seed", err)
	}
	metrics.SeededActivities.Set(float64(added))
	r.logger.Info("activity catalog seeded", map[string]interface{}{
		"offered": len(activities),
		"added":   added,
	})
	return added, nil
}

// ListActivities returns a snapshot keyed by activity name. The caller owns
// the returned map and slices.
func (r *Registry) ListActivities(ctx context.Context) (map[string]Activity, error) {
	start := r.now()
	list, err := r.store.List(ctx)
	metrics.StoreOperationDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, apperrors.NewStorageFailedError("list", err)
	}
	return list, nil
}

// Signup adds email to the roster of activityName and returns the
// confirmation message.
func (r *Registry) Signup(ctx context.Context, activityName, email string) (string, error) {
	if r.opts.ValidateEmail {
		if err := validation.ValidateEmail(email); err != nil {
			metrics.SignupsTotal.WithLabelValues(metrics.UnknownActivity, metrics.ResultInvalidEmail).Inc()
			return "", apperrors.NewInvalidEmailError(email, err)
		}
	}

	start := r.now()
	err := r.store.AddParticipant(ctx, activityName, email, r.opts.EnforceCapacity)
	metrics.StoreOperationDuration.WithLabelValues("add_participant").Observe(time.Since(start).Seconds())
	if err != nil {
		result, appErr := r.translate("signup", activityName, email, err)
		metrics.SignupsTotal.WithLabelValues(labelFor(activityName, result), result).Inc()
		return "", appErr
	}
	metrics.SignupsTotal.WithLabelValues(activityName, metrics.ResultSuccess).Inc()

	r.logger.Info("student signed up", map[string]interface{}{
		"activity": activityName,
		"email":    email,
	})

	event := SignupEvent{
		ID:         uuid.NewString(),
		Activity:   activityName,
		Email:      email,
		OccurredAt: r.now().UTC(),
	}
	if err := r.notifier.SignupConfirmed(ctx, event); err != nil {
		r.logger.Warn("signup notification failed", map[string]interface{}{
			"activity": activityName,
			"eventId":  event.ID,
			"error":    err,
		})
	}

	return fmt.Sprintf("Signed up %s for %s", email, activityName), nil
}

// Unregister removes email from the roster of activityName.
func (r *Registry) Unregister(ctx context.Context, activityName, email string) (string, error) {
	start := r.now()
	err := r.store.RemoveParticipant(ctx, activityName, email)
	metrics.StoreOperationDuration.WithLabelValues("remove_participant").Observe(time.Since(start).Seconds())
	if err != nil {
		result, appErr := r.translate("unregister", activityName, email, err)
		metrics.UnregistrationsTotal.WithLabelValues(labelFor(activityName, result), result).Inc()
		return "", appErr
	}
	metrics.UnregistrationsTotal.WithLabelValues(activityName, metrics.ResultSuccess).Inc()

	r.logger.Info("student unregistered", map[string]interface{}{
		"activity": activityName,
		"email":    email,
	})
	return fmt.Sprintf("Unregistered %s from %s", email, activityName), nil
}

// translate maps store sentinels to API errors and a metrics result label.
func (r *Registry) translate(operation, activityName, email string, err error) (string, error) {
	switch {
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound, apperrors.NewActivityNotFoundError(activityName, err)
	case errors.Is(err, ErrAlreadySignedUp):
		return metrics.ResultDuplicate, apperrors.NewAlreadySignedUpError(activityName, email, err)
	case errors.Is(err, ErrNotSignedUp):
		return metrics.ResultNotSignedUp, apperrors.NewNotSignedUpError(activityName, email, err)
	case errors.Is(err, ErrActivityFull):
		return metrics.ResultFull, apperrors.NewActivityFullError(activityName, err)
	default:
		r.logger.Error("roster store failed", map[string]interface{}{
			"operation": operation,
			"activity":  activityName,
			"error":     err,
		})
		return metrics.ResultError, apperrors.NewStorageFailedError(operation, err)
	}
}

func labelFor(activityName, result string) string {
	if result == metrics.ResultNotFound || result == metrics.ResultError {
		return metrics.UnknownActivity
	}
	return activityName
}

type nopNotifier struct{}

func (nopNotifier) SignupConfirmed(context.Context, SignupEvent) error { return nil }
