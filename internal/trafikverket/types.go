package trafikverket

// Train identifies a train run in the TrainPosition feed.
type Train struct {
	OperationalTrainNumber        string `json:"OperationalTrainNumber"`
	OperationalTrainDepartureDate string `json:"OperationalTrainDepartureDate"`
	JourneyPlanNumber             string `json:"JourneyPlanNumber,omitempty"`
	JourneyPlanDepartureDate      string `json:"JourneyPlanDepartureDate,omitempty"`
	AdvertisedTrainNumber         string `json:"AdvertisedTrainNumber,omitempty"`
}

// Geometry carries the position of a train in two coordinate systems,
// each encoded as WKT point text ("POINT (x y)"). Either may be absent.
type Geometry struct {
	SWEREF99TM string `json:"SWEREF99TM,omitempty"`
	WGS84      string `json:"WGS84,omitempty"`
}

// PositionEvent is one TrainPosition record as delivered by the provider.
type PositionEvent struct {
	Train     Train    `json:"Train"`
	Position  Geometry `json:"Position"`
	TimeStamp string   `json:"TimeStamp"`
	Bearing   *float64 `json:"Bearing,omitempty"`
	Speed     *float64 `json:"Speed,omitempty"`
}

// Location is one entry in an announcement's from/to location list.
type Location struct {
	LocationName string `json:"LocationName,omitempty"`
	Priority     int64  `json:"Priority,omitempty"`
	Order        int64  `json:"Order,omitempty"`
}

// ProductInformation describes the commercial product of a train.
type ProductInformation struct {
	Code        string `json:"Code,omitempty"`
	Description string `json:"Description,omitempty"`
}

// AnnouncementEvent is one TrainAnnouncement record as delivered by the provider.
type AnnouncementEvent struct {
	ActivityType              string               `json:"ActivityType,omitempty"`
	AdvertisedTimeAtLocation  string               `json:"AdvertisedTimeAtLocation,omitempty"`
	AdvertisedTrainIdent      string               `json:"AdvertisedTrainIdent,omitempty"`
	FromLocation              []Location           `json:"FromLocation,omitempty"`
	ToLocation                []Location           `json:"ToLocation,omitempty"`
	LocationSignature         string               `json:"LocationSignature,omitempty"`
	ProductInformation        []ProductInformation `json:"ProductInformation,omitempty"`
	TimeAtLocationWithSeconds string               `json:"TimeAtLocationWithSeconds,omitempty"`
}

// Info carries handshake result metadata. SSEURL is the push-stream URL.
type Info struct {
	SSEURL string `json:"SSEURL"`
}

// ResultItem is one element of the RESULT array. The handshake response
// carries INFO; push messages carry the feed-specific record lists.
type ResultItem struct {
	TrainPosition     []PositionEvent     `json:"TrainPosition,omitempty"`
	TrainAnnouncement []AnnouncementEvent `json:"TrainAnnouncement,omitempty"`
	Info              Info                `json:"INFO"`
}

// Response is the envelope shared by handshake responses and push messages.
type Response struct {
	Response struct {
		Result []ResultItem `json:"RESULT"`
	} `json:"RESPONSE"`
}
