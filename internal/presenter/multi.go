package presenter

import (
	"context"

	"agrisense/internal/models"
	"agrisense/internal/notification"

	"go.uber.org/multierr"
)

// Multi fans a notification out to several platforms.
type Multi []notification.Platform

func (m Multi) Supported() bool {
	for _, p := range m {
		if p.Supported() {
			return true
		}
	}
	return false
}

// Permission is granted when any platform grants, denied when every supported platform denies.
func (m Multi) Permission(ctx context.Context) models.Permission {
	perms := make([]models.Permission, 0, len(m))
	for _, p := range m {
		if p.Supported() {
			perms = append(perms, p.Permission(ctx))
		}
	}
	return combine(perms)
}

func (m Multi) RequestPermission(ctx context.Context) (models.Permission, error) {
	var errs error
	perms := make([]models.Permission, 0, len(m))
	for _, p := range m {
		if !p.Supported() {
			continue
		}
		perm, err := p.RequestPermission(ctx)
		errs = multierr.Append(errs, err)
		perms = append(perms, perm)
	}
	perm := combine(perms)
	if perm == models.PermissionGranted {
		return perm, nil
	}
	return perm, errs
}

// Display presents n on every platform that currently grants permission.
func (m Multi) Display(ctx context.Context, n models.Notification) error {
	var errs error
	for _, p := range m {
		if !p.Supported() || p.Permission(ctx) != models.PermissionGranted {
			continue
		}
		errs = multierr.Append(errs, p.Display(ctx, n))
	}
	return errs
}

func combine(perms []models.Permission) models.Permission {
	if len(perms) == 0 {
		return models.PermissionDenied
	}
	denied := 0
	for _, p := range perms {
		switch p {
		case models.PermissionGranted:
			return models.PermissionGranted
		case models.PermissionDenied:
			denied++
		}
	}
	if denied == len(perms) {
		return models.PermissionDenied
	}
	return models.PermissionDefault
}
