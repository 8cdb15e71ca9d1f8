package github

import (
	"context"
	"net/http"

	"github.com/nhle/forge-sparks/internal/forge"
)

// Identify performs the identity check shared by GitHub-compatible
// forges. userURL must return the authenticated user; probeURL is a
// notifications endpoint used to detect a token without the
// notifications scope, which such forges report as 403. A 403 on userURL
// means the token lacks the user scope.
func Identify(
	ctx context.Context,
	client *forge.Client,
	userURL string,
	probeURL string,
) (forge.User, error) {
	kind := client.Forge()

	resp, err := client.Do(ctx, http.MethodGet, userURL, nil)
	if err != nil {
		return forge.User{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return forge.User{}, forge.StatusError(kind, resp.StatusCode, http.MethodGet, userURL)
	default:
		return forge.User{}, forge.NewError(
			forge.ErrUnexpected, kind, resp.StatusCode,
			"GET %s", userURL,
		)
	}

	var payload userPayload
	if err := resp.Decode(kind, &payload); err != nil {
		return forge.User{}, err
	}
	if payload.ID == nil || payload.Login == nil || *payload.Login == "" {
		return forge.User{}, forge.NewError(
			forge.ErrUnexpected, kind, resp.StatusCode,
			"user payload is missing id or login",
		)
	}

	probe, err := client.Do(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return forge.User{}, err
	}
	if probe.StatusCode == http.StatusForbidden {
		return forge.User{}, forge.StatusError(kind, probe.StatusCode, http.MethodGet, probeURL)
	}

	return forge.User{ID: *payload.ID, Username: *payload.Login}, nil
}
