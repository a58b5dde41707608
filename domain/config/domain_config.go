package config

// DomainConfig holds the prompt rules that are not expressed as field tags
type DomainConfig struct {
	// Versioning
	InitialVersion   string
	DefaultChangelog string

	// Field bounds, mirrored by the document schema
	MinTitleLength       int
	MaxTitleLength       int
	MaxDescriptionLength int

	// Defaults applied on create
	DefaultStatus string
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		InitialVersion:   "v1.0.0",
		DefaultChangelog: "Version update",

		MinTitleLength:       1,
		MaxTitleLength:       100,
		MaxDescriptionLength: 500,

		DefaultStatus: "draft",
	}
}
