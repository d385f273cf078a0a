package models

// EligibilityBlock identifies the first hard check an enrollment request
// failed. Checks run in a fixed order, so the same request always reports
// the same blocker.
type EligibilityBlock string

// Blocking reasons in check order.
const (
	BlockOfferingInactive    EligibilityBlock = "OFFERING_INACTIVE"
	BlockAlreadyEnrolled     EligibilityBlock = "ALREADY_ENROLLED"
	BlockOfferingFull        EligibilityBlock = "OFFERING_FULL"
	BlockRepeatLimitExceeded EligibilityBlock = "REPEAT_LIMIT_EXCEEDED"
	BlockPrerequisiteNotMet  EligibilityBlock = "PREREQUISITE_NOT_MET"
)

// EligibilityWarningCode tags advisory findings that never block enrollment.
type EligibilityWarningCode string

const (
	WarnLevelMismatch    EligibilityWarningCode = "LEVEL_MISMATCH"
	WarnPrerequisiteSoft EligibilityWarningCode = "PREREQUISITE_SOFT_WARNING"
	WarnRepeatAttempt    EligibilityWarningCode = "REPEAT_ATTEMPT"
)

// EligibilityWarning pairs a warning code with a human-readable message.
type EligibilityWarning struct {
	Code    EligibilityWarningCode `json:"code"`
	Message string                 `json:"message"`
}

// EligibilityResult is the outcome of an enrollment eligibility check.
// Warnings are collected regardless of OK; MissingPrerequisites lists the
// course codes behind a prerequisite blocker or soft warning.
type EligibilityResult struct {
	OK                   bool                 `json:"ok"`
	Blocker              EligibilityBlock     `json:"blocker,omitempty"`
	Warnings             []EligibilityWarning `json:"warnings"`
	MissingPrerequisites []string             `json:"missing_prerequisites,omitempty"`
}
