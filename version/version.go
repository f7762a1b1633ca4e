package version

// Version is the semantic version of the rolodex build.
const Version = "0.1.0"
