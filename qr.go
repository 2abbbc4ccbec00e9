/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/quizbox/internal/validate"
)

const qrSize = 320

// joinURL is the link players scan to land on the join screen for gameID.
func (s *server) joinURL(r *http.Request, gameID string) string {
	return s.baseURL(r) + "/?game=" + url.QueryEscape(gameID)
}

func (s *server) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		gameID, ok := validate.GameID(p.ByName("gameid"))
		if !ok {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		if !s.engine.Has(gameID) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(s.joinURL(r, gameID), qrcode.Medium, qrSize)
		if err != nil {
			s.report(err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(s.cfg, w)

		if _, err := w.Write(png); err != nil {
			s.report(err)
		}
	}
}
