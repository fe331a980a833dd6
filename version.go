package glint

// Version is overridden at build time with -ldflags "-X github.com/phroun/glint.Version=..."
var Version = "dev"
