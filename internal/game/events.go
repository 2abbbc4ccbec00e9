/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "github.com/Seednode/quizbox/internal/session"

// Inbound event names.
const (
	EventCreateGame        = "createGame"
	EventJoinGame          = "joinGame"
	EventKickPlayer        = "kickPlayer"
	EventStartGame         = "startGame"
	EventResetGame         = "resetGame"
	EventLeaveGame         = "leaveGame"
	EventSongPlaying       = "songPlaying"
	EventShowKahootOptions = "showKahootOptions"
	EventSubmitAnswer      = "submitAnswer"
	EventRevealAnswers     = "revealAnswers"
	EventNextSong          = "nextSong"
	EventEndGame           = "endGame"
	EventRejoinGame        = "rejoinGame"
)

// Outbound event names.
const (
	EventConnected          = "connected"
	EventGameCreated        = "gameCreated"
	EventGameJoined         = "gameJoined"
	EventPlayerJoined       = "playerJoined"
	EventPlayerKicked       = "playerKicked"
	EventPlayerLeft         = "playerLeft"
	EventGameStarted        = "gameStarted"
	EventGameReset          = "gameReset"
	EventGameDeleted        = "gameDeleted"
	EventHostChanged        = "hostChanged"
	EventKahootOptions      = "kahootOptions"
	EventAnswerTimeExpired  = "answerTimeExpired"
	EventAnswerResult       = "answerResult"
	EventPlayerAnswered     = "playerAnswered"
	EventAllPlayersAnswered = "allPlayersAnswered"
	EventSongChanged        = "songChanged"
	EventGameEnded          = "gameEnded"
	EventRejoinSuccess      = "rejoinSuccess"
	EventRejoinFailed       = "rejoinFailed"
	EventPlayerRejoined     = "playerRejoined"
	EventError              = "error"
)

type Connected struct {
	ID string `json:"id"`
}

type GameCreated struct {
	GameID string           `json:"gameId"`
	Game   session.Snapshot `json:"game"`
}

type GameJoined struct {
	GameID   string             `json:"gameId"`
	PlayerID string             `json:"playerId"`
	Player   session.PlayerView `json:"player"`
	Game     session.Snapshot   `json:"game"`
}

type PlayerJoined struct {
	Player session.PlayerView `json:"player"`
	Game   session.Snapshot   `json:"game"`
}

type PlayerKicked struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

type PlayerLeft struct {
	PlayerID   string           `json:"playerId"`
	PlayerName string           `json:"playerName"`
	Game       session.Snapshot `json:"game"`
}

type GameState struct {
	Game session.Snapshot `json:"game"`
}

type GameReset struct {
	GameID string `json:"gameId"`
}

type GameDeleted struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}

type HostChanged struct {
	Host   string           `json:"host"`
	HostID string           `json:"hostId"`
	Game   session.Snapshot `json:"game"`
}

type SongPlaying struct {
	SongIndex    int `json:"songIndex"`
	ClipDuration int `json:"clipDuration"`
}

type KahootOptions struct {
	SongIndex    int       `json:"songIndex"`
	Options      [4]string `json:"options"`
	CorrectIndex int       `json:"correctIndex"`
	AnswerTime   int       `json:"answerTime"`
}

type AnswerResult struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	SongIndex  int    `json:"songIndex"`
	IsCorrect  bool   `json:"isCorrect"`
	TimedOut   bool   `json:"timedOut"`
	Points     int    `json:"points"`
	TotalScore int    `json:"totalScore"`
}

type PlayerAnswered struct {
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	AnsweredCount int    `json:"answeredCount"`
	TotalPlayers  int    `json:"totalPlayers"`
}

type RevealAnswers struct {
	Title         string           `json:"title"`
	Artist        string           `json:"artist"`
	CorrectAnswer string           `json:"correctAnswer"`
	CorrectIndex  int              `json:"correctIndex"`
	Game          session.Snapshot `json:"game"`
}

type SongChanged struct {
	CurrentSong  int              `json:"currentSong"`
	ClipDuration int              `json:"clipDuration"`
	Game         session.Snapshot `json:"game"`
}

type GameEnded struct {
	Game        session.Snapshot   `json:"game"`
	Leaderboard []session.Standing `json:"leaderboard"`
}

type RejoinSuccess struct {
	GameID string              `json:"gameId"`
	IsHost bool                `json:"isHost"`
	Player *session.PlayerView `json:"player,omitempty"`
	Game   session.Snapshot    `json:"game"`
}

type RejoinFailed struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
