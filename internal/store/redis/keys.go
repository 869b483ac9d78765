package redis

// Key names of the sync document set. One key per field, JSON values;
// the field names mirror the wire snapshot so a dump of the namespace
// reads like the exchanged document.
const (
	keyPrefix = "tabsync:"

	KeyBookmarks = keyPrefix + "customBookmarks"
	KeyDeleted   = keyPrefix + "deletedBookmarks"
	KeyNotes     = keyPrefix + "stickyNotes"

	KeyCardSize  = keyPrefix + "bookmarkCardSize"
	KeyCardShape = keyPrefix + "bookmarkCardShape"
	KeySortBy    = keyPrefix + "bookmarkSortBy"

	KeyLocalModify   = keyPrefix + "lastLocalModify"
	KeyLastSync      = keyPrefix + "lastWebDAVSync"
	KeyLastDirection = keyPrefix + "lastSyncDirection"

	KeyRemoteConfig   = keyPrefix + "webdavConfig"
	KeyAutoSyncConfig = keyPrefix + "autoSyncConfig"
)
