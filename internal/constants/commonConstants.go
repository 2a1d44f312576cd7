package constants

type (
	RequestSource string
	APIStatus     string
	CachePrefix   string
)

const (
	RequestSourceAccessToken  RequestSource = "ACCESS_TOKEN"
	RequestSourceRefreshToken RequestSource = "REFRESH_TOKEN"

	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixClubRefCode CachePrefix = "CLUB_REF_"
)

// Token purposes carried in the typ claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	PurposeReset     = "password-reset"
)

// Mail outbox
const (
	MailOutboxStream = "mail:outbox"
	MailOutboxGroup  = "mail-senders"
)
