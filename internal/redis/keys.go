package redisx

import "fmt"

const ns = "tourgo:v1"

func KeyTourSummary(tourID int64) string {
	return fmt.Sprintf("%s:tour:%d:summary", ns, tourID)
}

func KeyTourAvailability(tourID int64) string {
	return fmt.Sprintf("%s:tour:%d:availability", ns, tourID)
}

func KeyTourList() string {
	return ns + ":tours:list"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelToursChanged() string {
	return ns + ":tours:changed"
}
