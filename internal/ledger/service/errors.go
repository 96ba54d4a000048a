package service

import "errors"

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupExists        = errors.New("group key already registered")
	ErrUOMeNotFound       = errors.New("uome not found")
	ErrNotAMember         = errors.New("identity is not a member of the group")
	ErrCounterpartyUnknown = errors.New("counterparty is not a member of the group")
	ErrNotYourUOMe        = errors.New("uome belongs to a different member")
	ErrAlreadyAccepted    = errors.New("uome has already been accepted")
	ErrNotConfirmed       = errors.New("uome has not been confirmed by the lender")
	ErrInvalidValue       = errors.New("value must be a positive amount of cents")
	ErrSelfLoan           = errors.New("lender and borrower must differ")
	ErrDescriptionTooLong = errors.New("description exceeds the maximum length")
	ErrInvalidGroupKey    = errors.New("group key is not a valid identity")
)
