package sntpal

import (
	"time"

	"github.com/beevik/ntp"

	"github.com/AndrewLester/sntpal/pkg/civil"
)

// QueryFunc matches ntp.Query; it is replaced in tests.
type QueryFunc func(host string) (*ntp.Response, error)

// Verify asks a reference client for the server's time and returns how far
// got, read in the given zone, is ahead of it. The result carries the
// one-second truncation of the transmit timestamp plus round trip delays.
func Verify(host string, got civil.DateTime, timezone int, query QueryFunc) (time.Duration, error) {
	if query == nil {
		query = ntp.Query
	}

	resp, err := query(host)
	if err != nil {
		return 0, err
	}

	if err = resp.Validate(); err != nil {
		return 0, err
	}

	zone := time.FixedZone("", int(civil.Offset(timezone)))

	return got.Time(zone).Sub(resp.Time), nil
}
