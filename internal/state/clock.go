package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSiteID returns a random identifier for one engine instance. It tags
// outbound messages so a participant can recognise its own echoes.
func NewSiteID() string {
	return uuid.NewString()
}

// IDSource mints action ids of the form <author>-<unix millis>-<8 hex>.
type IDSource struct {
	now func() time.Time
}

// NewIDSource returns an IDSource reading time from now (time.Now when nil).
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns a fresh id for an action created by author.
func (s *IDSource) Next(author string) string {
	return fmt.Sprintf("%s-%d-%s", author, s.now().UnixMilli(), uuid.NewString()[:8])
}
