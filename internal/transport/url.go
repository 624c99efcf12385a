package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// sessionPath is the fixed path template for the duplex session endpoint.
const sessionPath = "/v1/websocket/?login=%s&password=%s"

var schemeReplacer = strings.NewReplacer("https://", "wss://", "http://", "ws://")

// SessionURL derives the websocket connection URI from a base HTTP(S) URI
// by scheme substitution, appending the session path with the credentials
// as query parameters.
func SessionURL(baseURI string, creds CredentialsProvider) string {
	return schemeReplacer.Replace(baseURI) + fmt.Sprintf(sessionPath,
		url.QueryEscape(creds.Login()),
		url.QueryEscape(creds.Password()))
}
