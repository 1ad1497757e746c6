package appsettings

import "time"

const (
	applicationWeb    = "WEB"
	componentTour     = "Tour"
	keyTourChangeDate = "LatestChangeDateTime"
	tourCacheKey      = "tour-change"
)

// ApplicationSetting is one configurable value keyed by
// application/component/key.
type ApplicationSetting struct {
	Application string    `db:"application" json:"application"`
	Component   string    `db:"component" json:"component"`
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type TourChangeRequest struct {
	LatestChangeDateTime time.Time `json:"latest_change_date_time" validate:"required"`
}
