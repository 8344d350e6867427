/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package archive keeps a log of finished games in Postgres. It is write-only:
// nothing is ever read back to restore a room.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const EventGameFinished = "game_finished"

// Archive records finished games. The zero value and a nil *Archive are
// valid and record nothing.
type Archive struct {
	db  *gorm.DB
	log zerolog.Logger
}

type Option func(*Archive)

func WithLogger(log zerolog.Logger) Option {
	return func(a *Archive) { a.log = log }
}

// Open connects to the database at dsn. An empty dsn gives an Archive that
// records nothing.
func Open(dsn string, opts ...Option) (*Archive, error) {
	if dsn == "" {
		return New(nil, opts...), nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return New(db, opts...), nil
}

func New(db *gorm.DB, opts ...Option) *Archive {
	a := &Archive{
		db:  db,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether records are actually written.
func (a *Archive) Enabled() bool {
	return a != nil && a.db != nil
}

// Migrate creates or updates the archive tables.
func (a *Archive) Migrate() error {
	if !a.Enabled() {
		return nil
	}
	if err := a.db.AutoMigrate(&Game{}, &Standing{}, &Event{}); err != nil {
		return err
	}
	a.log.Info().Msg("ARCHIVE: migration complete")
	return nil
}

// Record stores a finished game: the game row, one standing per player and
// the final snapshot without drawings.
func (a *Archive) Record(ctx context.Context, s game.GameState) error {
	if !a.Enabled() {
		return nil
	}
	if s.Phase != game.PhaseLeaderboard {
		return errors.New("archive: game is not finished")
	}

	now := time.Now()
	g, standings, payload, err := buildRecord(s, now)
	if err != nil {
		return err
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		for i := range standings {
			standings[i].GameID = g.ID
		}
		if len(standings) > 0 {
			if err := tx.Create(&standings).Error; err != nil {
				return err
			}
		}
		return tx.Create(&Event{
			GameID:    g.ID,
			Type:      EventGameFinished,
			Payload:   payload,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return err
	}

	a.log.Info().Str("room", s.RoomCode).Uint("game", g.ID).Int("players", len(standings)).Msg("ARCHIVE: recorded game")
	return nil
}

// Close releases the database connection.
func (a *Archive) Close() error {
	if !a.Enabled() {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildRecord(s game.GameState, at time.Time) (Game, []Standing, datatypes.JSON, error) {
	g := Game{
		RoomCode:   s.RoomCode,
		Version:    s.Version,
		Players:    len(s.Players),
		FinishedAt: at,
		CreatedAt:  at,
	}

	standings := make([]Standing, 0, len(s.Players))
	for _, st := range game.Standings(s) {
		standings = append(standings, Standing{
			PlayerID:   st.Player.ID,
			Name:       st.Player.Name,
			IsHost:     st.Player.IsHost,
			Rank:       st.Rank,
			QuizScore:  st.Player.QuizScore,
			ThumbsUp:   st.Player.ThumbsUp,
			ThumbsDown: st.Player.ThumbsDown,
			CreatedAt:  at,
		})
	}

	// drawings are large and opaque
	snap := s.Clone()
	for i := range snap.Players {
		snap.Players[i].DrawingDataURL = ""
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return Game{}, nil, nil, err
	}
	return g, standings, datatypes.JSON(payload), nil
}
