package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for callers deciding whether to retry or surface it
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindStateConflict       ErrorKind = "state_conflict"
	KindNotFound            ErrorKind = "not_found"
	KindIdempotencyConflict ErrorKind = "idempotency_conflict"
	KindFatal               ErrorKind = "fatal"
)

// DomainError is a coded failure raised by aggregates and domain services
type DomainError struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any DomainError carrying the same code, so detailed copies
// created with WithMessage still satisfy errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func newError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Code: code, Kind: kind, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CodeOf returns the code of the first DomainError in err's chain, or "" if there is none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Draw errors
var (
	ErrDrawTimeInvalid            = newError(KindValidation, "DrawTimeInvalid", "sales open must be before sales close, and sales close no later than draw time")
	ErrDrawCodeRequired           = newError(KindValidation, "DrawCodeRequired", "draw code is required")
	ErrDrawCodeDuplicate          = newError(KindStateConflict, "DrawCodeDuplicate", "a draw with this code already exists")
	ErrGameCodeRequired           = newError(KindValidation, "GameCodeRequired", "game code is required")
	ErrDrawRedeemValidDaysInvalid = newError(KindValidation, "DrawRedeemValidDaysInvalid", "redeem valid days must be positive")
	ErrGameNotFound               = newError(KindValidation, "GameNotFound", "game is not in the play rule catalogue")
	ErrPlayTypeNotAllowed         = newError(KindValidation, "PlayTypeNotAllowed", "play type is not allowed for this game")
	ErrPlayTypeAlreadyEnabled     = newError(KindStateConflict, "PlayTypeAlreadyEnabled", "play type is already enabled")
	ErrTicketPlayTypeNotEnabled   = newError(KindValidation, "TicketPlayTypeNotEnabled", "play type is not enabled for this draw")
	ErrPrizeTierNotAllowed        = newError(KindValidation, "PrizeTierNotAllowed", "prize tier is not defined by the play rule")
	ErrPrizePoolSlotMissing       = newError(KindStateConflict, "PrizePoolSlotMissing", "prize pool slot does not exist")
	ErrPrizePoolNotConfigured     = newError(KindStateConflict, "PrizePoolNotConfigured", "prize pool slot has no prize option")
	ErrPrizeOptionInvalid         = newError(KindValidation, "PrizeOptionInvalid", "prize option is invalid")
	ErrDrawAlreadySettled         = newError(KindStateConflict, "DrawAlreadySettled", "draw has already been drawn or settled")
	ErrDrawAlreadyDrawn           = newError(KindStateConflict, "DrawAlreadyDrawn", "draw has already been drawn")
	ErrDrawCancelled              = newError(KindStateConflict, "DrawCancelled", "draw is cancelled")
	ErrDrawNotDrawn               = newError(KindStateConflict, "DrawNotDrawn", "draw has not been drawn yet")
	ErrDrawNotClosed              = newError(KindStateConflict, "DrawNotClosed", "draw sales are not closed yet")
	ErrDrawSeedNotCommitted       = newError(KindStateConflict, "DrawSeedNotCommitted", "draw has no committed server seed hash")
	ErrDrawSeedCommitClosed       = newError(KindStateConflict, "DrawSeedCommitClosed", "the seed hash must be committed before sales close and before any ticket is sold")
	ErrDrawNotFound               = newError(KindNotFound, "DrawNotFound", "draw not found")
	ErrDrawSettlementInvariant    = newError(KindFatal, "DrawSettlementInvariant", "draw cannot be settled in its current state")
	ErrDrawSeedMismatch           = newError(KindFatal, "DrawSeedMismatch", "stored server seed does not match the committed hash")
	ErrDrawSeedNotFound           = newError(KindFatal, "DrawSeedNotFound", "server seed is missing from the seed store")
	ErrDrawResultInvalid          = newError(KindFatal, "DrawResultInvalid", "derived winning numbers failed validation")
)

// Lottery number errors
var (
	ErrLotteryNumbersCountInvalid  = newError(KindValidation, "LotteryNumbersCountInvalid", "wrong number of values")
	ErrLotteryNumbersOutOfRange    = newError(KindValidation, "LotteryNumbersOutOfRange", "value out of range")
	ErrLotteryNumbersDuplicate     = newError(KindValidation, "LotteryNumbersDuplicate", "duplicate value")
	ErrLotteryNumbersFormatInvalid = newError(KindValidation, "LotteryNumbersFormatInvalid", "numbers could not be parsed")
)

// Ticket errors
var (
	ErrTicketNotFound                       = newError(KindNotFound, "TicketNotFound", "ticket not found")
	ErrTicketAlreadySubmitted               = newError(KindStateConflict, "TicketAlreadySubmitted", "ticket numbers were already submitted")
	ErrTicketNumbersAlreadySubmitted        = newError(KindStateConflict, "TicketNumbersAlreadySubmitted", "ticket already has a number line")
	ErrTicketSubmissionTransitionInvalid    = newError(KindStateConflict, "TicketSubmissionTransitionInvalid", "ticket submission status cannot change")
	ErrTicketParticipationTransitionInvalid = newError(KindStateConflict, "TicketParticipationTransitionInvalid", "ticket participation status cannot change")
	ErrTicketDrawNotAvailable               = newError(KindStateConflict, "TicketDrawNotAvailable", "no draw is currently open for this ticket")
	ErrTicketQuantityInvalid                = newError(KindValidation, "TicketQuantityInvalid", "ticket quantity must be positive")
	ErrTicketMemberRequired                 = newError(KindValidation, "TicketMemberRequired", "member id is required")
	ErrTicketIdempotencyKeyConflict         = newError(KindIdempotencyConflict, "TicketIdempotencyKeyConflict", "idempotency key was already used for a different request")
	ErrTicketIdempotencyPayloadInvalid      = newError(KindIdempotencyConflict, "TicketIdempotencyPayloadInvalid", "stored idempotent response could not be decoded")
)

// Ticket claim errors
var (
	ErrTicketClaimEventNotFound            = newError(KindNotFound, "TicketClaimEventNotFound", "ticket claim event not found")
	ErrTicketClaimEventTimeInvalid         = newError(KindValidation, "TicketClaimEventTimeInvalid", "claim event must end after it starts")
	ErrTicketClaimEventQuotaInvalid        = newError(KindValidation, "TicketClaimEventQuotaInvalid", "claim quotas must be positive and per-member quota cannot exceed total quota")
	ErrTicketClaimEventScopeInvalid        = newError(KindValidation, "TicketClaimEventScopeInvalid", "claim event scope is invalid")
	ErrTicketClaimEventDisabled            = newError(KindStateConflict, "TicketClaimEventDisabled", "claim event is disabled")
	ErrTicketClaimEventNotStarted          = newError(KindStateConflict, "TicketClaimEventNotStarted", "claim event has not started")
	ErrTicketClaimEventEnded               = newError(KindStateConflict, "TicketClaimEventEnded", "claim event has ended")
	ErrTicketClaimEventSoldOut             = newError(KindStateConflict, "TicketClaimEventSoldOut", "claim event quota is exhausted")
	ErrTicketClaimEventMemberQuotaExceeded = newError(KindStateConflict, "TicketClaimEventMemberQuotaExceeded", "member has claimed all tickets allowed")
	ErrTicketClaimEventStatusInvalid       = newError(KindStateConflict, "TicketClaimEventStatusInvalid", "claim event status does not allow this change")
)

// Collaborator errors
var (
	ErrGameNotEntitled     = newError(KindStateConflict, "GameNotEntitled", "tenant is not entitled to this game")
	ErrPlayNotEntitled     = newError(KindStateConflict, "PlayNotEntitled", "tenant is not entitled to this play type")
	ErrMemberNotFound      = newError(KindNotFound, "MemberNotFound", "member wallet not found")
	ErrInsufficientBalance = newError(KindStateConflict, "InsufficientBalance", "member balance is insufficient")
)
