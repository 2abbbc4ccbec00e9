/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/quizbox/internal/session"
	"github.com/Seednode/quizbox/internal/validate"
)

type songPlayingRequest struct {
	GameID    string          `json:"gameId"`
	SongIndex json.RawMessage `json:"songIndex"`
}

type showKahootOptionsRequest struct {
	GameID       string          `json:"gameId"`
	SongIndex    json.RawMessage `json:"songIndex"`
	Options      json.RawMessage `json:"options"`
	CorrectIndex json.RawMessage `json:"correctIndex"`
}

type submitAnswerRequest struct {
	GameID       string          `json:"gameId"`
	PlayerID     string          `json:"playerId"`
	AnswerIndex  json.RawMessage `json:"answerIndex"`
	ResponseTime json.RawMessage `json:"responseTime"`
	IsCorrect    json.RawMessage `json:"isCorrect"`
	TimedOut     json.RawMessage `json:"timedOut"`
}

type revealAnswersRequest struct {
	GameID        string          `json:"gameId"`
	Title         json.RawMessage `json:"title"`
	Artist        json.RawMessage `json:"artist"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	CorrectIndex  json.RawMessage `json:"correctIndex"`
}

// playing is hosted plus the playing-state check.
func (e *Engine) playing(connID, raw string) (*session.Session, error) {
	s, err := e.hosted(connID, raw)
	if err != nil {
		return nil, err
	}
	if s.State != session.StatePlaying {
		return nil, reject(ErrWrongState, "Game is not in progress.")
	}
	return s, nil
}

func (e *Engine) songPlaying(connID string, data json.RawMessage) error {
	var req songPlayingRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.playing(connID, req.GameID)
	if err != nil {
		return err
	}

	idx, ok := validate.SongIndex(req.SongIndex)
	if !ok || idx >= s.SongCount() {
		return reject(ErrInvalidInput, "Invalid song index.")
	}
	if idx < s.CurrentSong {
		return reject(ErrWrongState, "Songs can only move forward.")
	}

	// Replaying the current clip leaves an open answer window running.
	if idx > s.CurrentSong {
		s.CurrentSong = idx
		s.Round.Listen(idx)
	}

	e.touch(s.ID)
	e.rooms.BroadcastExcept(s.ID, connID, EventSongPlaying, SongPlaying{
		SongIndex:    idx,
		ClipDuration: s.Settings.ClipDuration,
	})

	return nil
}

func (e *Engine) showKahootOptions(connID string, data json.RawMessage) error {
	var req showKahootOptionsRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.playing(connID, req.GameID)
	if err != nil {
		return err
	}

	idx, ok := validate.SongIndex(req.SongIndex)
	if !ok {
		return reject(ErrInvalidInput, "Invalid song index.")
	}

	opt, ok := validate.KahootOption(req.Options, req.CorrectIndex)
	if !ok {
		return reject(ErrInvalidInput, "Invalid answer options.")
	}

	s.KahootOptions[idx] = opt
	s.Round.Open(idx, time.Duration(s.Settings.AnswerTime)*time.Second, e.after, func(gen uint64) {
		e.answerWindowExpired(s, gen)
	})

	e.touch(s.ID)
	e.rooms.BroadcastExcept(s.ID, connID, EventKahootOptions, KahootOptions{
		SongIndex:    idx,
		Options:      opt.Options,
		CorrectIndex: opt.CorrectIndex,
		AnswerTime:   s.Settings.AnswerTime,
	})

	e.logger.Debug("answer window opened",
		zap.String("game_id", s.ID),
		zap.Int("song", idx),
		zap.Int("answer_time", s.Settings.AnswerTime),
	)

	return nil
}

// answerWindowExpired runs on the scheduler goroutine. It must re-check that
// s is still the live session and that gen names the window it was armed for.
func (e *Engine) answerWindowExpired(s *session.Session, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()
	defer e.recoverPanic("", "answerTimeExpired")

	if live, ok := e.store.Get(s.ID); !ok || live != s {
		return
	}
	if !s.Round.Expire(gen) {
		return
	}

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventAnswerTimeExpired, GameState{Game: s.Snapshot()})

	e.logger.Debug("answer window expired", zap.String("game_id", s.ID), zap.Int("song", s.Round.Song))
}

// submitAnswer drops bad or duplicate submissions without telling the
// sender; the first answer for a song wins.
func (e *Engine) submitAnswer(connID string, data json.RawMessage) error {
	var req submitAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil
	}

	id, ok := validate.GameID(req.GameID)
	if !ok {
		return nil
	}

	playerID := connID
	if req.PlayerID != "" {
		pid, ok := validate.ConnectionID(req.PlayerID)
		if !ok || pid != connID {
			return nil
		}
		playerID = pid
	}

	s, ok := e.store.Get(id)
	if !ok || s.State != session.StatePlaying {
		return nil
	}

	p := s.PlayerByID(playerID)
	if p == nil {
		return nil
	}
	if _, answered := p.AnswerFor(s.CurrentSong); answered {
		return nil
	}

	maxMs := float64(s.Settings.AnswerTime * 1000)

	var answer session.Answer
	if timedOut, _ := validate.Bool(req.TimedOut); timedOut {
		answer = session.Answer{
			SongIndex:      s.CurrentSong,
			SelectedOption: -1,
			ResponseTime:   maxMs,
			TimedOut:       true,
		}
	} else {
		sub, ok := validate.AnswerSubmission(req.AnswerIndex, req.ResponseTime)
		if !ok {
			return nil
		}

		// Correctness is asserted by the client, which holds the options.
		correct, _ := validate.Bool(req.IsCorrect)
		points := 0
		if correct {
			points = CalculatePoints(sub.ResponseTime, maxMs)
		}

		answer = session.Answer{
			SongIndex:      s.CurrentSong,
			SelectedOption: sub.Index,
			ResponseTime:   sub.ResponseTime,
			IsCorrect:      correct,
			Points:         points,
		}
	}

	p.Answers = append(p.Answers, answer)
	p.Score += answer.Points

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventAnswerResult, AnswerResult{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		SongIndex:  answer.SongIndex,
		IsCorrect:  answer.IsCorrect,
		TimedOut:   answer.TimedOut,
		Points:     answer.Points,
		TotalScore: p.Score,
	})
	e.rooms.Broadcast(s.ID, EventPlayerAnswered, PlayerAnswered{
		PlayerID:      p.ID,
		PlayerName:    p.Name,
		AnsweredCount: s.AnsweredCount(),
		TotalPlayers:  len(s.Players),
	})

	e.checkAllAnswered(s)

	return nil
}

// checkAllAnswered closes the window early once the whole roster has
// answered the current song. Roster shrinkage can also complete a round.
func (e *Engine) checkAllAnswered(s *session.Session) {
	if s.State != session.StatePlaying || len(s.Players) == 0 {
		return
	}
	if s.Round.Phase == session.PhaseAllAnswered || s.Round.Phase == session.PhaseRevealed {
		return
	}
	if s.AnsweredCount() < len(s.Players) {
		return
	}

	s.Round.Complete()

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventAllPlayersAnswered, GameState{Game: s.Snapshot()})
}

func (e *Engine) revealAnswers(connID string, data json.RawMessage) error {
	var req revealAnswersRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.hosted(connID, req.GameID)
	if err != nil {
		return err
	}

	idx, ok := validate.OptionIndex(req.CorrectIndex)
	if !ok {
		idx = -1
	}

	s.Round.Reveal()

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventRevealAnswers, RevealAnswers{
		Title:         validate.String(req.Title, validate.MaxTextLength),
		Artist:        validate.String(req.Artist, validate.MaxTextLength),
		CorrectAnswer: validate.String(req.CorrectAnswer, validate.MaxTextLength),
		CorrectIndex:  idx,
		Game:          s.Snapshot(),
	})

	return nil
}

func (e *Engine) nextSong(connID string, data json.RawMessage) error {
	var req gameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.playing(connID, req.GameID)
	if err != nil {
		return err
	}

	s.CurrentSong++
	if s.CurrentSong >= s.SongCount() {
		e.finish(s)
		return nil
	}

	s.Round.Listen(s.CurrentSong)

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventSongChanged, SongChanged{
		CurrentSong:  s.CurrentSong,
		ClipDuration: s.Settings.ClipDuration,
		Game:         s.Snapshot(),
	})

	return nil
}

func (e *Engine) endGame(connID string, data json.RawMessage) error {
	var req gameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.hosted(connID, req.GameID)
	if err != nil {
		return err
	}
	if s.State == session.StateLobby {
		return reject(ErrWrongState, "Game has not started.")
	}

	e.finish(s)
	return nil
}

func (e *Engine) finish(s *session.Session) {
	s.Finish()

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventGameEnded, GameEnded{
		Game:        s.Snapshot(),
		Leaderboard: s.Leaderboard(),
	})

	e.logger.Info("game ended", zap.String("game_id", s.ID), zap.Int("songs_played", min(s.CurrentSong, s.SongCount())))
}
