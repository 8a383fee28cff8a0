package ssestream

import (
	"errors"

	"github.com/hatsunemiku3939/ssestream/types"
)

var (
	ErrSourceFailure          = types.ErrSourceFailure
	ErrTransformFailure       = types.ErrTransformFailure
	ErrPreStreamFailure       = types.ErrPreStreamFailure
	ErrSinkClosed             = errors.New("sink closed")
	ErrPolicyMisconfiguration = errors.New("policy misconfiguration")
	ErrIllegalTransition      = errors.New("illegal stream state transition")
	ErrNoRoute                = errors.New("no route registered")
	ErrStreamingUnsupported   = errors.New("response writer does not support streaming")
	ErrTransformPanic         = errors.New("transform panicked")
)
