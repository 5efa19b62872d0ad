package kognicauth

import "runtime"

// Version is the library version reported in the User-Agent header.
const Version = "1.0.0"

// userAgent builds the User-Agent string, like
// "kognic-auth-go/1.0.0 go/go1.25.0 MyClient".
func userAgent(clientName string) string {
	ua := "kognic-auth-go/" + Version + " go/" + runtime.Version()
	if clientName != "" {
		ua += " " + clientName
	}
	return ua
}
