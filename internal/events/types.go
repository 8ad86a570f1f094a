package events

// Wire event names. The same name is used in both directions where the
// protocol has an inbound and an outbound form.

// Inbound only
const (
	EventTypeJoin           = "join"
	EventTypeFileMessage    = "fileMessage"
	EventTypeUpdateLastSeen = "updateLastSeen"
)

// Outbound only
const (
	EventTypeJoined     = "joined"
	EventTypeLastSeenID = "lastSeenId"
	EventTypeHistory    = "history"
	EventTypeDelivered  = "delivered"
	EventTypeError      = "error"
)

// Both directions
const (
	EventTypeMessage          = "message"
	EventTypeSeen             = "seen"
	EventTypeTyping           = "typing"
	EventTypeReaction         = "reaction"
	EventTypeBackgroundChange = "backgroundChange"
	EventTypeAvatarChange     = "avatarChange"
)

// Broadcast scopes, used as metric labels.
const (
	ScopeCaller = "caller"
	ScopeRoom   = "room"
	ScopeGlobal = "global"
)
