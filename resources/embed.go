package resources

import "embed"

//go:embed migrations facts
var FS embed.FS
