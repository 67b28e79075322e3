// Package spotify_tools provides MCP tools backed by the Spotify Web API.
//
// # Available Tools
//
//   - get-my-spotify-profile: Fetch the current user's profile
//   - get-my-spotify-id: Fetch the current user's Spotify id
//   - get-currently-playing: Fetch the track the user is playing
//   - get-my-spotify-playlists: Fetch the current user's playlists
//
// # Authentication
//
// Tools take no arguments. Every call first asks the authorization server for
// the stored access token. When no user has logged in yet the tool returns a
// prompt with the login URL and the Spotify API is not called.
package spotify_tools
