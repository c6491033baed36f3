package models

// Channel preference values for a notification type
const (
	ChannelNone          = "none"
	ChannelInApp         = "in-app"
	ChannelEmail         = "email"
	ChannelInAppAndEmail = "in-app-and-email"
)

// DefaultImportance is assigned when a caller leaves Importance unset.
const DefaultImportance = 5

// Notification represents a stored notification record (MongoDB).
// The ID is caller-supplied and must be stable for a given semantic event
// (e.g. derived from actor+target+kind) so that repeated triggers collide.
type Notification struct {
	ID         string `bson:"_id" json:"id"`
	Type       string `bson:"type,omitempty" json:"type,omitempty"` // selects the recipient's channel preference
	BodyShort  string `bson:"bodyShort" json:"bodyShort"`
	BodyLong   string `bson:"bodyLong,omitempty" json:"bodyLong,omitempty"`
	Path       string `bson:"path,omitempty" json:"path,omitempty"`
	Datetime   int64  `bson:"datetime" json:"datetime"` // unix milliseconds, set by the store
	Importance int    `bson:"importance" json:"importance"`
	PID        *int64 `bson:"pid,omitempty" json:"pid,omitempty"` // underlying content item, if any
	From       uint   `bson:"from,omitempty" json:"from,omitempty"`
	MergeID    string `bson:"mergeId,omitempty" json:"mergeId,omitempty"` // "<groupKey>" or "<groupKey>|<differentiator>"
	TopicTitle string `bson:"topicTitle,omitempty" json:"topicTitle,omitempty"`

	// Resolved at fetch time, never persisted
	User *UserCompact `bson:"-" json:"user,omitempty"`
	Read bool         `bson:"-" json:"read"`
}

// CreateNotificationRequest is the payload of the internal create+push endpoint.
type CreateNotificationRequest struct {
	ID           string   `json:"id" validate:"required"`
	Type         string   `json:"type,omitempty"`
	BodyShort    string   `json:"bodyShort" validate:"required"`
	BodyLong     string   `json:"bodyLong,omitempty"`
	Path         string   `json:"path,omitempty"`
	Importance   int      `json:"importance,omitempty" validate:"omitempty,min=1,max=10"`
	PID          *int64   `json:"pid,omitempty"`
	From         uint     `json:"from,omitempty"`
	MergeID      string   `json:"mergeId,omitempty"`
	TopicTitle   string   `json:"topicTitle,omitempty"`
	RecipientIDs []uint   `json:"recipientIds,omitempty"`
	Groups       []string `json:"groups,omitempty"`
}

// ToNotification converts the request payload to a record ready for Create.
func (r *CreateNotificationRequest) ToNotification() *Notification {
	return &Notification{
		ID:         r.ID,
		Type:       r.Type,
		BodyShort:  r.BodyShort,
		BodyLong:   r.BodyLong,
		Path:       r.Path,
		Importance: r.Importance,
		PID:        r.PID,
		From:       r.From,
		MergeID:    r.MergeID,
		TopicTitle: r.TopicTitle,
	}
}
