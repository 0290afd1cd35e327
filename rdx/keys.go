package rdx

import "time"

const (
	ProductTTL   = 5 * time.Minute
	DashboardTTL = 60 * time.Second

	DashboardKey = "analytics:dashboard"
)

func ProductKey(id string) string {
	return "product:" + id
}
