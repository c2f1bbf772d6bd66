package sim

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid ledger configuration")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrLeverageOutOfRange  = errors.New("leverage out of range")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrPositionNotFound    = errors.New("position not found")
	ErrUnknownDirection    = errors.New("unknown direction")
	ErrInvalidSnapshot     = errors.New("invalid snapshot")
)

// IsRejection reports whether err is one of the ledger's pre-trade
// rejections, as opposed to a usage error such as an unknown position.
func IsRejection(err error) bool {
	return errors.Is(err, ErrLeverageOutOfRange) ||
		errors.Is(err, ErrInsufficientCapital) ||
		errors.Is(err, ErrInvalidOrder)
}
