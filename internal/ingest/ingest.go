// Package ingest wires decoded push messages into the persistence store.
// Decode and persistence errors are logged and dropped here so they never
// reach the connection manager.
package ingest

import (
	"github.com/rs/zerolog"

	"github.com/rhersen/trainwatch/internal/store"
	"github.com/rhersen/trainwatch/internal/stream"
	"github.com/rhersen/trainwatch/internal/trafikverket"
)

// Positions returns the message handler for the TrainPosition feed.
func Positions(st *store.Store, log zerolog.Logger) stream.MessageFunc {
	feedLog := log.With().Str("component", "ingest").Str("feed", "position").Logger()

	return func(message []byte) {
		records, err := trafikverket.DecodePositions(message)
		if err != nil {
			feedLog.Error().Err(err).Msg("Dropping undecodable message")
			return
		}

		saved := 0
		for i := range records {
			if err := st.InsertPosition(&records[i]); err != nil {
				feedLog.Error().Err(err).
					Str("train", records[i].OperationalTrainNumber).
					Msg("Failed to persist position")
				continue
			}
			saved++
		}

		if saved > 0 {
			feedLog.Debug().Int("count", saved).Msg("Persisted positions")
		}
	}
}

// Announcements returns the message handler for the TrainAnnouncement feed.
func Announcements(st *store.Store, log zerolog.Logger) stream.MessageFunc {
	feedLog := log.With().Str("component", "ingest").Str("feed", "announcement").Logger()

	return func(message []byte) {
		records, err := trafikverket.DecodeAnnouncements(message)
		if err != nil {
			feedLog.Error().Err(err).Msg("Dropping undecodable message")
			return
		}

		saved := 0
		for i := range records {
			if err := st.InsertAnnouncement(&records[i]); err != nil {
				feedLog.Error().Err(err).Msg("Failed to persist announcement")
				continue
			}
			saved++
		}

		if saved > 0 {
			feedLog.Debug().Int("count", saved).Msg("Persisted announcements")
		}
	}
}
