// Package auth implements the Spotify OAuth 2.0 authorization-code flow for a
// single local user.
//
// Handler serves three endpoints:
//
//   - GET /login redirects the browser to the Spotify consent page with a
//     random anti-forgery state stored in the spotify_auth_state cookie
//   - GET /callback verifies the state, exchanges the code for tokens and
//     stores them in the session slot
//   - GET /token hands the stored access token to local callers, or answers
//     401 when nobody has logged in yet
//
// TokenFetcher is the client side of /token and is what the MCP tools use to
// obtain the current access token over loopback HTTP.
package auth
