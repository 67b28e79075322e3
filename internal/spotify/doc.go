// Package spotify wraps the zmb3/spotify SDK for the Spotify Web API
// endpoints the MCP tools expose: the current user's profile, the current
// playback and the user's playlists.
//
// Every call takes the access token explicitly; the client holds no
// credentials of its own. Outcomes are logged and returned as typed values.
// A 204 from the currently-playing endpoint is not an error: CurrentlyPlaying
// returns (nil, nil).
package spotify
