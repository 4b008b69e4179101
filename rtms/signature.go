package rtms

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the handshake signature: hex HMAC-SHA256 over
// "clientID,meetingUUID,streamID" keyed by the client secret. Both the
// signaling and data handshakes carry this value.
func Sign(clientID, meetingUUID, streamID, secret string) string {
	message := fmt.Sprintf("%s,%s,%s", clientID, meetingUUID, streamID)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
