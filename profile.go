/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/pprof"
	"slices"
	"strings"
	"time"

	"github.com/Seednode/joker/internal/engine"
	"github.com/julienschmidt/httprouter"
)

var namedProfiles = []string{
	"allocs",
	"block",
	"goroutine",
	"heap",
	"mutex",
	"threadcreate",
}

// roomStats is one open room as seen by the debug listing. It carries no
// per-seat information.
type roomStats struct {
	Code     string       `json:"code"`
	Phase    engine.Phase `json:"phase"`
	Round    int          `json:"round"`
	Seated   int          `json:"seated"`
	Paused   bool         `json:"paused"`
	IdleTime string       `json:"idleTime"`
}

func (gm *GameManager) stats(now time.Time) []roomStats {
	gm.mu.Lock()
	hubs := make([]*Hub, 0, len(gm.hubs))
	for _, h := range gm.hubs {
		hubs = append(hubs, h)
	}
	gm.mu.Unlock()

	out := make([]roomStats, 0, len(hubs))
	for _, h := range hubs {
		snap, seated := h.snapshot()
		if snap == nil {
			continue
		}
		out = append(out, roomStats{
			Code:     h.code,
			Phase:    snap.Phase,
			Round:    snap.RoundCount,
			Seated:   seated,
			Paused:   snap.Paused,
			IdleTime: now.Sub(snap.UpdatedAt).Round(time.Second).String(),
		})
	}
	slices.SortFunc(out, func(a, b roomStats) int {
		return strings.Compare(a.Code, b.Code)
	})

	return out
}

func serveRoomStats(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		rooms := gm.stats(startTime)
		if err := serveJSON(cfg, w, rooms); err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room listing (%d rooms) to %s in %s",
			len(rooms),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func registerProfileHandlers(cfg *Config, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	base := cfg.prefix + "/pprof"

	for _, name := range namedProfiles {
		mux.Handler("GET", base+"/"+name, pprof.Handler(name))
	}
	mux.HandlerFunc("GET", base+"/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", base+"/profile", pprof.Profile)
	mux.HandlerFunc("GET", base+"/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", base+"/trace", pprof.Trace)

	mux.GET(base+"/rooms", serveRoomStats(cfg, gm, errs))

	logf(cfg, "SERVE: Registered profiling handlers under %s/", base)
}
