// Package navigation implements the multi-resolution time navigation of a
// trace: a coarse overview of the whole trace and a selection that drives
// the detailed view.
package navigation

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrStaleResult marks a fetch result that was superseded by a newer request
// before it arrived. Stale results are dropped and never shown to the user.
var ErrStaleResult = errors.New("stale result discarded")

var log = logrus.WithField("component", "navigation")
