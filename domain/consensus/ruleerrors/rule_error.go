package ruleerrors

import (
	"github.com/pkg/errors"
)

// RuleError identifies a specific invalidity reason raised by the
// validation pipeline or the DAG storage layer. The caller distinguishes
// kinds with errors.Is against the sentinel values below, never by type
// assertion on a subclass.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies errors.Unwrap.
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies github.com/pkg/errors.Causer.
func (e RuleError) Cause() error {
	return e.inner
}

// Is lets errors.Is match two RuleErrors with the same message regardless
// of their wrapped inner cause, so a caller can test e.g.
// errors.Is(err, ErrSwimlaneMerged) after the error has been wrapped with
// context via errors.Wrapf.
func (e RuleError) Is(target error) bool {
	other, ok := target.(RuleError)
	if !ok {
		return false
	}
	return e.message == other.message
}

func newRuleError(message string) RuleError {
	return RuleError{message: message}
}

// Droppable sentinel kinds (§4.E.1): discarded without penalty.
var (
	ErrInvalidUnslashableBlock = newRuleError("ErrInvalidUnslashableBlock")
)

// Retry-eligible sentinel kind (§4.E.2 "Missing-blocks").
var (
	ErrMissingBlocks = newRuleError("ErrMissingBlocks")
)

// Slashable sentinel kinds (§7 table).
var (
	ErrInvalidBlockHash        = newRuleError("ErrInvalidBlockHash")
	ErrInvalidBlockNumber      = newRuleError("ErrInvalidBlockNumber")
	ErrInvalidSequenceNumber   = newRuleError("ErrInvalidSequenceNumber")
	ErrInvalidPrevBlockHash    = newRuleError("ErrInvalidPrevBlockHash")
	ErrSwimlaneMerged          = newRuleError("ErrSwimlaneMerged")
	ErrInvalidParents          = newRuleError("ErrInvalidParents")
	ErrInvalidDeployHash       = newRuleError("ErrInvalidDeployHash")
	ErrInvalidDeploySignature  = newRuleError("ErrInvalidDeploySignature")
	ErrInvalidDeployHeader     = newRuleError("ErrInvalidDeployHeader")
	ErrInvalidDeployCount      = newRuleError("ErrInvalidDeployCount")
	ErrInvalidRepeatDeploy     = newRuleError("ErrInvalidRepeatDeploy")
	ErrDeployExpired           = newRuleError("ErrDeployExpired")
	ErrDeployFromFuture        = newRuleError("ErrDeployFromFuture")
	ErrDeployDependencyNotMet  = newRuleError("ErrDeployDependencyNotMet")
	ErrInvalidChainName        = newRuleError("ErrInvalidChainName")
	ErrInvalidBondsCache       = newRuleError("ErrInvalidBondsCache")
	ErrInvalidPreStateHash     = newRuleError("ErrInvalidPreStateHash")
	ErrInvalidPostStateHash    = newRuleError("ErrInvalidPostStateHash")
	ErrInvalidTransaction      = newRuleError("ErrInvalidTransaction")
	ErrInvalidTargetHash       = newRuleError("ErrInvalidTargetHash")
	ErrNeglectedInvalidBlock   = newRuleError("ErrNeglectedInvalidBlock")
)

// Fatal-to-process sentinel kind: the DAG storage detected an invariant
// violation it cannot explain by a missing dependency (different content
// under an already-stored hash, a wrong rank, or a validatorPrevBlockHash
// that is not the creator's immediate predecessor).
var (
	ErrCorrupt = newRuleError("ErrCorrupt")
)

// ErrMissingDependency indicates insert() was asked to link a message to a
// parent or justification that storage has never seen.
var ErrMissingDependency = newRuleError("ErrMissingDependency")

// SynchronizationError aborts the initial synchronizer; the node retries
// later. Unlike the other kinds it carries the peer that caused it; Peer is
// empty when the failure is not tied to one peer (no candidates left, or no
// peer succeeded in a round).
type SynchronizationError struct {
	Peer   string
	Reason string
}

func (e *SynchronizationError) Error() string {
	return "synchronization error from peer " + e.Peer + ": " + e.Reason
}

// NewSynchronizationError wraps a peer/reason pair with a stack trace.
func NewSynchronizationError(peer, reason string) error {
	return errors.WithStack(&SynchronizationError{Peer: peer, Reason: reason})
}

// IsDroppable reports whether err is (or wraps) a droppable §4.E.1 failure.
func IsDroppable(err error) bool {
	return errors.Is(err, ErrInvalidUnslashableBlock)
}

// IsSlashable reports whether err is one of the slashable kinds in the §7
// table (everything except MissingBlocks, InvalidUnslashableBlock,
// SynchronizationError, and Corrupt).
func IsSlashable(err error) bool {
	switch {
	case errors.Is(err, ErrMissingBlocks),
		errors.Is(err, ErrInvalidUnslashableBlock),
		errors.Is(err, ErrCorrupt):
		return false
	}
	var syncErr *SynchronizationError
	return !errors.As(err, &syncErr)
}
