// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers fire-and-forget desktop notifications. Delivery
// failures are swallowed: a notification is never worth failing an
// operation over.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/pdiddy/marksnips/pkg/types"
)

// Notifier is the injected notification capability.
type Notifier interface {
	Success(title, message string)
	Failure(title, message string)
	Info(title, message string)
}

// Desktop shows native desktop notifications, honoring the configured
// per-kind flags.
type Desktop struct {
	cfg types.NotificationsConfig
}

// NewDesktop creates a Desktop notifier with the given flags.
func NewDesktop(cfg types.NotificationsConfig) *Desktop {
	return &Desktop{cfg: cfg}
}

func (d *Desktop) Success(title, message string) {
	if !d.cfg.Enabled || !d.cfg.ShowSuccessNotifications {
		return
	}
	_ = beeep.Notify(title, message, "")
}

func (d *Desktop) Failure(title, message string) {
	if !d.cfg.Enabled || !d.cfg.ShowErrorNotifications {
		return
	}
	_ = beeep.Alert(title, message, "")
}

func (d *Desktop) Info(title, message string) {
	if !d.cfg.Enabled {
		return
	}
	_ = beeep.Notify(title, message, "")
}

// Nop discards every notification. Used in tests and headless runs.
type Nop struct{}

func (Nop) Success(title, message string) {}
func (Nop) Failure(title, message string) {}
func (Nop) Info(title, message string)    {}
