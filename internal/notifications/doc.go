// Package notifications delivers migration run summaries via ntfy.
//
// The topic comes from the [notifications] section of config.toml. When no
// topic is configured NewService returns a no-op Service, so callers never
// need to check whether notifications are enabled.
package notifications
