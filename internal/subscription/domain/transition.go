package domain

type transition struct {
	from Status
	to   Status
}

var allowedTransitions = map[transition]bool{
	{StatusFree, StatusTrial}:        true,
	{StatusFree, StatusActive}:       true,
	{StatusTrial, StatusActive}:      true,
	{StatusTrial, StatusExpired}:     true,
	{StatusTrial, StatusCancelled}:   true,
	{StatusActive, StatusActive}:     true,
	{StatusActive, StatusExpired}:    true,
	{StatusActive, StatusCancelled}:  true,
	{StatusExpired, StatusActive}:    true,
	{StatusExpired, StatusCancelled}: true,
	{StatusCancelled, StatusActive}:  true,
}

// CanTransition reports whether the lifecycle permits moving from one status to another.
func CanTransition(from, to Status) bool {
	if from == "" {
		from = StatusFree
	}
	return allowedTransitions[transition{from: from, to: to}]
}
