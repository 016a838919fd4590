package trafikverket

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rhersen/trainwatch/internal/store"
)

// wktPointPattern matches WKT point text like "POINT (18.07 59.33)".
var wktPointPattern = regexp.MustCompile(`POINT\s*\(\s*([\d.-]+)\s+([\d.-]+)\s*\)`)

// parseWKTPoint extracts the coordinate pair from WKT point text. Absent or
// malformed input yields ok=false, never an error; the record is still
// persisted without coordinates.
func parseWKTPoint(wkt string) (x, y float64, ok bool) {
	m := wktPointPattern.FindStringSubmatch(wkt)
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(m[1], 64)
	y, errY := strconv.ParseFloat(m[2], 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

// DecodePositions turns one raw push message into zero or more position
// records. A result item without a TrainPosition list contributes nothing.
func DecodePositions(message []byte) ([]store.Position, error) {
	var parsed Response
	if err := json.Unmarshal(message, &parsed); err != nil {
		return nil, fmt.Errorf("malformed position message: %w", err)
	}

	var records []store.Position
	for _, item := range parsed.Response.Result {
		for _, ev := range item.TrainPosition {
			records = append(records, mapPosition(ev))
		}
	}
	return records, nil
}

// DecodeAnnouncements turns one raw push message into zero or more
// announcement records.
func DecodeAnnouncements(message []byte) ([]store.Announcement, error) {
	var parsed Response
	if err := json.Unmarshal(message, &parsed); err != nil {
		return nil, fmt.Errorf("malformed announcement message: %w", err)
	}

	var records []store.Announcement
	for _, item := range parsed.Response.Result {
		for _, ev := range item.TrainAnnouncement {
			records = append(records, mapAnnouncement(ev))
		}
	}
	return records, nil
}

func mapPosition(ev PositionEvent) store.Position {
	p := store.Position{
		OperationalTrainNumber:        ev.Train.OperationalTrainNumber,
		OperationalTrainDepartureDate: ev.Train.OperationalTrainDepartureDate,
		JourneyPlanNumber:             strPtr(ev.Train.JourneyPlanNumber),
		JourneyPlanDepartureDate:      strPtr(ev.Train.JourneyPlanDepartureDate),
		AdvertisedTrainNumber:         strPtr(ev.Train.AdvertisedTrainNumber),
		Timestamp:                     ev.TimeStamp,
		Bearing:                       ev.Bearing,
		Speed:                         ev.Speed,
	}

	// WGS84 point text is "POINT (longitude latitude)"
	if lon, lat, ok := parseWKTPoint(ev.Position.WGS84); ok {
		p.Longitude = &lon
		p.Latitude = &lat
	}
	if x, y, ok := parseWKTPoint(ev.Position.SWEREF99TM); ok {
		p.Sweref99TMX = &x
		p.Sweref99TMY = &y
	}

	return p
}

func mapAnnouncement(ev AnnouncementEvent) store.Announcement {
	a := store.Announcement{
		ActivityType:              strPtr(ev.ActivityType),
		AdvertisedTimeAtLocation:  strPtr(ev.AdvertisedTimeAtLocation),
		AdvertisedTrainIdent:      strPtr(ev.AdvertisedTrainIdent),
		LocationSignature:         strPtr(ev.LocationSignature),
		TimeAtLocationWithSeconds: strPtr(ev.TimeAtLocationWithSeconds),
	}

	// Origin and destination are the first elements of their location lists;
	// an empty list leaves the fields null.
	if len(ev.FromLocation) > 0 {
		loc := ev.FromLocation[0]
		a.FromLocationName = strPtr(loc.LocationName)
		a.FromLocationPriority = &loc.Priority
	}
	if len(ev.ToLocation) > 0 {
		loc := ev.ToLocation[0]
		a.ToLocationName = strPtr(loc.LocationName)
		a.ToLocationPriority = &loc.Priority
	}
	if len(ev.ProductInformation) > 0 {
		prod := ev.ProductInformation[0]
		a.ProductCode = strPtr(prod.Code)
		a.ProductDescription = strPtr(prod.Description)
	}

	return a
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
