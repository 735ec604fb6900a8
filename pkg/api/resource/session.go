package resource

import (
	"time"

	"github.com/fleetware/hub/pkg/hub"
)

type RemoteSessionResource struct {
	ID             string    `json:"id"`
	EndpointID     string    `json:"endpointId"`
	State          string    `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

func NewRemoteSession(sess hub.RemoteSession) (out *RemoteSessionResource) {
	out = &RemoteSessionResource{
		ID:             sess.ID,
		EndpointID:     sess.EndpointID,
		State:          sess.State.String(),
		CreatedAt:      sess.CreatedAt.Round(time.Second),
		LastActivityAt: sess.LastActivityAt.Round(time.Second),
	}

	return // out
}
