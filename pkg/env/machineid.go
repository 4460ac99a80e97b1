// Package env provides facts about the machine running a board.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the protected machine ID.
const AppID = "wonder"

// boardIDLen is the number of hex digits kept from the protected ID.
const boardIDLen = 12

// BoardID derives a stable board ID from the machine ID. The raw ID is
// never exposed, only an HMAC keyed by AppID.
func BoardID() (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", err
	}
	if len(id) > boardIDLen {
		id = id[:boardIDLen]
	}
	return id, nil
}

// DefaultBoardID returns BoardID, or the host name when the machine ID
// isn't available.
func DefaultBoardID() string {
	id, err := BoardID()
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "board"
}
