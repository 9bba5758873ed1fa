// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"

	"github.com/Thermoquad/wrocloud/pkg/link"
	"github.com/Thermoquad/wrocloud/pkg/mission"
)

// Outcome is the typed result of a transaction
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeTimeout: an expected marker did not appear in time
	OutcomeTimeout
	// OutcomeMalformed: the marker appeared but the reply did not split
	OutcomeMalformed
	// OutcomeUnconfigured: settings missing or unusable
	OutcomeUnconfigured
	// OutcomeTransport: the byte channel failed
	OutcomeTransport
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnconfigured:
		return "unconfigured"
	default:
		return "transport"
	}
}

// Classify maps an error returned by this package, link or mission to an
// Outcome. Unknown errors are transport failures.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, link.ErrUnconfigured), errors.Is(err, mission.ErrFieldDelimiter):
		return OutcomeUnconfigured
	case errors.Is(err, mission.ErrMalformed):
		return OutcomeMalformed
	case errors.Is(err, mission.ErrNoReply),
		errors.Is(err, link.ErrWifiDown),
		errors.Is(err, link.ErrCloudUnreachable):
		return OutcomeTimeout
	default:
		return OutcomeTransport
	}
}
