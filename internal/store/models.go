package store

// Position is one persisted location/motion fix for a train run.
// Rows are append-only; duplicate fixes across feed re-subscriptions are expected.
type Position struct {
	ID                            int64    `json:"id"`
	OperationalTrainNumber        string   `json:"operational_train_number"`
	OperationalTrainDepartureDate string   `json:"operational_train_departure_date"`
	JourneyPlanNumber             *string  `json:"journey_plan_number"`
	JourneyPlanDepartureDate      *string  `json:"journey_plan_departure_date"`
	AdvertisedTrainNumber         *string  `json:"advertised_train_number"`
	Latitude                      *float64 `json:"latitude"`
	Longitude                     *float64 `json:"longitude"`
	Sweref99TMX                   *float64 `json:"sweref99tm_x"`
	Sweref99TMY                   *float64 `json:"sweref99tm_y"`
	Timestamp                     string   `json:"timestamp"`
	Bearing                       *float64 `json:"bearing"`
	Speed                         *float64 `json:"speed"`
	IngestedAt                    int64    `json:"ingested_at"`
}

// Announcement is one persisted scheduling/activity event at a location.
type Announcement struct {
	ID                        int64   `json:"id"`
	ActivityType              *string `json:"activity_type"`
	AdvertisedTimeAtLocation  *string `json:"advertised_time_at_location"`
	AdvertisedTrainIdent      *string `json:"advertised_train_ident"`
	FromLocationName          *string `json:"from_location_name"`
	FromLocationPriority      *int64  `json:"from_location_priority"`
	ToLocationName            *string `json:"to_location_name"`
	ToLocationPriority        *int64  `json:"to_location_priority"`
	LocationSignature         *string `json:"location_signature"`
	ProductCode               *string `json:"product_code"`
	ProductDescription        *string `json:"product_description"`
	TimeAtLocationWithSeconds *string `json:"time_at_location_with_seconds"`
	IngestedAt                int64   `json:"ingested_at"`
}

// CleanupResult holds the number of rows deleted from each table
type CleanupResult struct {
	Positions     int64 `json:"positions"`
	Announcements int64 `json:"announcements"`
}

// Stats holds row counts and the most recent source-provided timestamps
type Stats struct {
	Positions        int64   `json:"positions"`
	Announcements    int64   `json:"announcements"`
	LastPosition     *string `json:"last_position"`
	LastAnnouncement *string `json:"last_announcement"`
}
