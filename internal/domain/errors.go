package domain

import "errors"

// Authorization failures.
var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrNotWinner              = errors.New("caller is not the winner")
	ErrUnauthorizedAdmin      = errors.New("caller is not the platform admin")
	ErrUnauthorizedOracle     = errors.New("caller is not the randomness oracle")
	ErrPlayerNotFound         = errors.New("player not found in game")
	ErrCannotPenalizeSelf     = errors.New("active player cannot penalize themselves")
	ErrNotParticipant         = errors.New("caller is not a participant")
	ErrInvalidRandomProof     = errors.New("randomness proof does not verify")
	ErrStaleSnapshot          = errors.New("venue snapshot does not belong to the current delegation")
	ErrInvalidDelegationToken = errors.New("delegation token is invalid")
)

// State precondition failures.
var (
	ErrAlreadyStarted     = errors.New("game already started")
	ErrGameNotStarted     = errors.New("game not started")
	ErrGameEnded          = errors.New("game already ended")
	ErrGameNotEnded       = errors.New("game not ended")
	ErrAlreadyClaimed     = errors.New("prize already claimed")
	ErrNoPrize            = errors.New("game was cancelled without a winner")
	ErrAlreadyRequested   = errors.New("randomness already requested or delivered")
	ErrUnknownCorrelation = errors.New("no outstanding randomness request for game")
	ErrNotCommitted       = errors.New("game state not committed")
	ErrAlreadyCommitted   = errors.New("game already committed")
	ErrNotDelegated       = errors.New("game is not delegated")
	ErrAlreadyDelegated   = errors.New("game already delegated")
	ErrGameFull           = errors.New("game capacity reached")
	ErrAlreadyJoined      = errors.New("player already joined")
	ErrCancelTooEarly     = errors.New("game cannot be cancelled before its wait time elapses")
	ErrTurnNotExpired     = errors.New("active player still has time to move")
	ErrGameExists         = errors.New("game already exists")
	ErrGameNotFound       = errors.New("game not found")
	ErrConfigExists       = errors.New("config already initialized")
	ErrConfigNotFound     = errors.New("config not initialized")
	ErrProfileExists      = errors.New("profile already exists")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrConcurrentUpdate   = errors.New("game changed concurrently, refresh and retry")
)

// Input validation failures.
var (
	ErrInvalidCard       = errors.New("card not in hand or does not match the call card")
	ErrInvalidEntryStake = errors.New("invalid entry stake")
	ErrInvalidCapacity   = errors.New("invalid game capacity")
	ErrInvalidWaitTime   = errors.New("invalid wait time")
	ErrInvalidFee        = errors.New("fee basis points out of range")
	ErrTooManyAssets     = errors.New("too many allowed assets")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidDeal       = errors.New("invalid deal parameters")
)

// ErrInvariantViolated reports a corrupted game record.
var ErrInvariantViolated = errors.New("game invariant violated")

// Funds failures.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAssetMismatch     = errors.New("asset not accepted")
)

// ErrorClass groups errors by how a caller should react to them.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassAuthorization
	ClassPrecondition
	ClassInput
	ClassFunds
	ClassNotFound
)

var errorClasses = map[error]ErrorClass{
	ErrNotYourTurn:            ClassAuthorization,
	ErrNotWinner:              ClassAuthorization,
	ErrUnauthorizedAdmin:      ClassAuthorization,
	ErrUnauthorizedOracle:     ClassAuthorization,
	ErrPlayerNotFound:         ClassAuthorization,
	ErrCannotPenalizeSelf:     ClassAuthorization,
	ErrNotParticipant:         ClassAuthorization,
	ErrInvalidRandomProof:     ClassAuthorization,
	ErrStaleSnapshot:          ClassAuthorization,
	ErrInvalidDelegationToken: ClassAuthorization,

	ErrAlreadyStarted:     ClassPrecondition,
	ErrGameNotStarted:     ClassPrecondition,
	ErrGameEnded:          ClassPrecondition,
	ErrGameNotEnded:       ClassPrecondition,
	ErrAlreadyClaimed:     ClassPrecondition,
	ErrNoPrize:            ClassPrecondition,
	ErrAlreadyRequested:   ClassPrecondition,
	ErrUnknownCorrelation: ClassPrecondition,
	ErrNotCommitted:       ClassPrecondition,
	ErrAlreadyCommitted:   ClassPrecondition,
	ErrNotDelegated:       ClassPrecondition,
	ErrAlreadyDelegated:   ClassPrecondition,
	ErrGameFull:           ClassPrecondition,
	ErrAlreadyJoined:      ClassPrecondition,
	ErrCancelTooEarly:     ClassPrecondition,
	ErrTurnNotExpired:     ClassPrecondition,
	ErrGameExists:         ClassPrecondition,
	ErrConfigExists:       ClassPrecondition,
	ErrProfileExists:      ClassPrecondition,
	ErrConcurrentUpdate:   ClassPrecondition,

	ErrGameNotFound:    ClassNotFound,
	ErrConfigNotFound:  ClassNotFound,
	ErrProfileNotFound: ClassNotFound,

	ErrInvalidCard:       ClassInput,
	ErrInvalidEntryStake: ClassInput,
	ErrInvalidCapacity:   ClassInput,
	ErrInvalidWaitTime:   ClassInput,
	ErrInvalidFee:        ClassInput,
	ErrTooManyAssets:     ClassInput,
	ErrInvalidUsername:   ClassInput,
	ErrInvalidDeal:       ClassInput,

	ErrInsufficientFunds: ClassFunds,
	ErrAssetMismatch:     ClassFunds,
}

// Classify returns the class of the first known sentinel wrapped by err.
// Unknown errors are ClassInternal.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassInternal
	}
	for sentinel, class := range errorClasses {
		if errors.Is(err, sentinel) {
			return class
		}
	}
	return ClassInternal
}
