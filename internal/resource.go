package internal

import "strings"

// Resource kinds used in Feedly identifiers.
const (
	KindCategory = "category"
	KindFeed     = "feed"
	KindTag      = "tag"
	KindEntry    = "entry"
)

// Well-known global labels.
const (
	LabelSaved         = "saved"
	LabelRead          = "read"
	LabelUncategorized = "uncategorized"
	LabelAll           = "all"
)

const globalPrefix = "global."

// ResourceID returns "user/<userID>/<kind>/<name>". The service matches
// these ids by exact string equality.
func ResourceID(userID, kind, name string) string {
	return "user/" + userID + "/" + kind + "/" + name
}

// GlobalResourceID returns the id of a service-wide singleton such as the
// saved tag: ResourceID(userID, kind, "global."+label).
func GlobalResourceID(userID, kind, label string) string {
	return ResourceID(userID, kind, globalPrefix+label)
}

// IsFeedID reports whether id names a feed stream.
func IsFeedID(id string) bool {
	return strings.HasPrefix(id, KindFeed)
}
