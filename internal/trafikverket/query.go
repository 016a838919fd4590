package trafikverket

import (
	"fmt"
	"time"
)

// trainNumberFilter restricts both feeds to the train-number bands we track
// (X2000 and Mälartåg services on the tracked corridor).
const trainNumberFilter = `/^(?:2[2-9]\d\d|12[89]\d\d|52[2-7]\d\d)$/`

const positionQueryTemplate = `
<REQUEST>
  <LOGIN authenticationkey='%s' />
  <QUERY objecttype='TrainPosition' namespace='järnväg.trafikinfo' sseurl='true' schemaversion='1.1'>
    <FILTER>
      <GT name='TimeStamp' value='%s'/>
      <LIKE name='Train.AdvertisedTrainNumber' value='%s' />
    </FILTER>
    <INCLUDE>Bearing</INCLUDE>
    <INCLUDE>Position</INCLUDE>
    <INCLUDE>Speed</INCLUDE>
    <INCLUDE>TimeStamp</INCLUDE>
    <INCLUDE>Train</INCLUDE>
  </QUERY>
</REQUEST>`

const announcementQueryTemplate = `
<REQUEST>
  <LOGIN authenticationkey='%s' />
  <QUERY objecttype='TrainAnnouncement' orderby='AdvertisedTimeAtLocation' sseurl='true' schemaversion='1.6'>
    <FILTER>
      <LIKE name='AdvertisedTrainIdent' value='%s' />
      <GT name='TimeAtLocationWithSeconds' value='%s' />
      <EXISTS name='ToLocation' value='true' />
    </FILTER>
    <INCLUDE>ActivityType</INCLUDE>
    <INCLUDE>AdvertisedTimeAtLocation</INCLUDE>
    <INCLUDE>AdvertisedTrainIdent</INCLUDE>
    <INCLUDE>FromLocation</INCLUDE>
    <INCLUDE>LocationSignature</INCLUDE>
    <INCLUDE>ProductInformation</INCLUDE>
    <INCLUDE>TimeAtLocationWithSeconds</INCLUDE>
    <INCLUDE>ToLocation</INCLUDE>
  </QUERY>
</REQUEST>`

// QueryBuilder builds the time-windowed subscription queries sent during the
// handshake. The lookback window pushes the filter lower bound slightly into
// the past so events in flight at subscription time are not missed.
type QueryBuilder struct {
	apiKey   string
	lookback time.Duration
}

// NewQueryBuilder creates a query builder for the given authentication key
// and lookback window.
func NewQueryBuilder(apiKey string, lookback time.Duration) *QueryBuilder {
	return &QueryBuilder{apiKey: apiKey, lookback: lookback}
}

// PositionQuery returns the TrainPosition subscription query, filtering on
// observation timestamp.
func (b *QueryBuilder) PositionQuery(now time.Time) string {
	return fmt.Sprintf(positionQueryTemplate, b.apiKey, b.since(now), trainNumberFilter)
}

// AnnouncementQuery returns the TrainAnnouncement subscription query,
// filtering on time-at-location and requiring a non-empty destination.
func (b *QueryBuilder) AnnouncementQuery(now time.Time) string {
	return fmt.Sprintf(announcementQueryTemplate, b.apiKey, trainNumberFilter, b.since(now))
}

func (b *QueryBuilder) since(now time.Time) string {
	return now.Add(-b.lookback).UTC().Format(time.RFC3339)
}
