package sim

func hitTarget(d Direction, target, price float64) bool {
	if d == Short {
		return price <= target
	}
	return price >= target
}

func hitStop(d Direction, stop, price float64) bool {
	if d == Short {
		return price >= stop
	}
	return price <= stop
}

// TargetHit reports whether price reached target for a position on side d.
func TargetHit(d Direction, target, price float64) bool { return hitTarget(d, target, price) }

// StopHit reports whether price crossed stop for a position on side d.
func StopHit(d Direction, stop, price float64) bool { return hitStop(d, stop, price) }
