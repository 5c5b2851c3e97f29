package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Managers never return these across a component boundary as failures to
// recover from; they surface as Result.Message so the UI layer can show them.

var (
	// Storage errors
	ErrNotFound      = errors.New("save not found")
	ErrValueTooLarge = errors.New("value exceeds backend size limit")
	ErrInvalidValue  = errors.New("value contains characters the backend cannot store")

	// Character errors
	ErrCharacterExists      = errors.New("character already created")
	ErrUnknownCharacterType = errors.New("unknown character type")
	ErrNoCharacter          = errors.New("no character selected")

	// Economy errors
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnknownItemType   = errors.New("unknown item type")
	ErrItemNotOwned      = errors.New("item not owned")
	ErrUnknownItem       = errors.New("unknown shop item")
	ErrItemOwned         = errors.New("item already owned")

	// Progression errors
	ErrWeekAlreadyCompleted = errors.New("week already completed")
	ErrInvalidWeek          = errors.New("week number must be at least 1")
	ErrAlreadyClaimed       = errors.New("daily reward already claimed today")
	ErrAlreadyUnlocked      = errors.New("achievement already unlocked")

	// Power-up errors
	ErrUnknownPowerUp    = errors.New("unknown power-up")
	ErrPowerUpNotOwned   = errors.New("power-up not owned")
	ErrPowerUpOnCooldown = errors.New("power-up on cooldown")
	ErrPowerUpRestricted = errors.New("power-up not available for this character")

	// Event errors
	ErrUnknownEvent = errors.New("unknown event")
	ErrEventActive  = errors.New("event already active")
)

// Result is the structured outcome of an operation whose precondition may fail.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK builds a successful result.
func OK(msg string) Result { return Result{Success: true, Message: msg} }

// Fail builds a failed result from a sentinel error.
func Fail(err error) Result { return Result{Success: false, Message: err.Error()} }
