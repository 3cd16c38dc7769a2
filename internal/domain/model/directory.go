package model

import "time"

// DirectoryRecord is the value stored under key IM-USER-{user_id} in the
// external key-value directory. It encodes this node's identity and
// enough of a fencing token (SessionID) for a compare-and-delete on
// disconnect, so a newer login on another node is never wiped by a stale
// delete.
type DirectoryRecord struct {
	BrokerID    string `json:"broker_id"`
	SessionID   string `json:"session_id"`
	ConnectedAt int64  `json:"connected_at"`
}

// DirectoryKey builds the external store key for a user id.
func DirectoryKey(userID string) string {
	return "IM-USER-" + userID
}

// NewDirectoryRecord stamps the current time as the connected-at field.
func NewDirectoryRecord(brokerID, sessionID string) DirectoryRecord {
	return DirectoryRecord{
		BrokerID:    brokerID,
		SessionID:   sessionID,
		ConnectedAt: time.Now().Unix(),
	}
}
