package main

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"api.tunesmith.dev/internal/spotify"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri)
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	message := "rate limit exceeded"
	app.errorResponse(w, r, http.StatusTooManyRequests, message)
}

func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusUnauthorized, "Not authenticated")
}

func (app *application) upstreamErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusBadGateway, err.Error())
}

// spotifyErrorResponse maps errors from the Spotify client onto HTTP
// statuses. Anything it does not recognise is a server error.
func (app *application) spotifyErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		apiErr      *spotify.APIError
		retrieveErr *oauth2.RetrieveError
	)

	switch {
	case errors.Is(err, spotify.ErrNotAuthenticated), errors.As(err, &retrieveErr):
		app.authenticationRequiredResponse(w, r)
	case errors.Is(err, spotify.ErrNoDevices), errors.Is(err, spotify.ErrNoActiveDevice):
		app.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, spotify.ErrPremiumRequired):
		app.errorResponse(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, spotify.ErrUnknownAction), errors.Is(err, spotify.ErrInvalidTrackURI):
		app.badRequestResponse(w, r, err)
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusUnauthorized:
			app.authenticationRequiredResponse(w, r)
		case http.StatusNotFound:
			app.notFoundResponse(w, r)
		default:
			app.upstreamErrorResponse(w, r, err)
		}
	default:
		app.serverErrorResponse(w, r, err)
	}
}
