package main

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/auth/status", app.authStatusHandler)
	router.HandlerFunc(http.MethodGet, "/v1/auth/login", app.loginHandler)
	router.HandlerFunc(http.MethodGet, "/v1/auth/callback", app.callbackHandler)
	router.HandlerFunc(http.MethodPost, "/v1/auth/logout", app.logoutHandler)

	router.HandlerFunc(http.MethodPost, "/v1/agent/requests", app.requireAuthenticatedUser(app.agentRequestHandler))
	router.HandlerFunc(http.MethodGet, "/v1/agent/history", app.requireAuthenticatedUser(app.showAgentHistoryHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/agent/history", app.requireAuthenticatedUser(app.clearAgentHistoryHandler))

	router.HandlerFunc(http.MethodGet, "/v1/me", app.requireAuthenticatedUser(app.showProfileHandler))
	router.HandlerFunc(http.MethodGet, "/v1/tracks", app.requireAuthenticatedUser(app.searchTracksHandler))

	router.HandlerFunc(http.MethodPost, "/v1/playlists", app.requireAuthenticatedUser(app.createPlaylistHandler))
	router.HandlerFunc(http.MethodGet, "/v1/playlists/:id/tracks", app.requireAuthenticatedUser(app.listPlaylistTracksHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/playlists/:id/tracks", app.requireAuthenticatedUser(app.removePlaylistTrackHandler))

	router.HandlerFunc(http.MethodPut, "/v1/player/:action", app.requireAuthenticatedUser(app.controlPlaybackHandler))

	router.HandlerFunc(http.MethodGet, "/v1/history/playlists", app.requireAuthenticatedUser(app.listRecordedPlaylistsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/history/playlists/:id", app.requireAuthenticatedUser(app.showRecordedPlaylistHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/history/playlists/:id", app.requireAuthenticatedUser(app.deleteRecordedPlaylistHandler))

	router.HandlerFunc(http.MethodGet, "/v1/search", app.searchMusicData)

	router.Handler(http.MethodGet, "/debug/vars", expvar.Handler())

	return app.metrics(app.recoverPanic(app.enableCORS(app.rateLimit(app.sessions.LoadAndSave(app.authenticate(router))))))
}
