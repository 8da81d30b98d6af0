package errorvalues

import "errors"

// Rejected-operation outcomes. Handlers map these to user-facing messages,
// everything else from the lower layers is treated as an internal failure.
var (
	ErrValidation              = errors.New("validation failed")
	ErrUserNotFound            = errors.New("user has no ledger row")
	ErrOwnerMissing            = errors.New("owning user row doesn't exist")
	ErrGoalNotFound            = errors.New("goal doesn't exist")
	ErrRewardNotFound          = errors.New("reward doesn't exist")
	ErrIncentiveNotFound       = errors.New("incentive doesn't exist")
	ErrNotOwner                = errors.New("goal belongs to another user")
	ErrGoalCompleted           = errors.New("goal is already completed")
	ErrRewardClaimed           = errors.New("reward was already claimed")
	ErrSelfBoost               = errors.New("cannot boost your own goal")
	ErrAlreadyBoosted          = errors.New("goal already boosted by this sender")
	ErrInsufficientPoints      = errors.New("not enough points")
	ErrInsufficientSharePoints = errors.New("not enough share points")
)
