package constants

// AppName is the binary and server name reported to clients.
const AppName = "outline"

// Version is set at build time with -ldflags "-X ...constants.Version=v1.2.3".
var Version = "dev"

// DefaultSearchLimit caps `outline search` results when no limit is given.
const DefaultSearchLimit = 50
