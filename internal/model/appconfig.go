package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Default pack settings applied to new projects
	DefaultMaxWidth      int  `json:"default_max_width"`
	DefaultMaxHeight     int  `json:"default_max_height"`
	DefaultBorderPadding int  `json:"default_border_padding"`
	DefaultShapePadding  int  `json:"default_shape_padding"`
	DefaultAllowRotate   bool `json:"default_allow_rotate"`
	DefaultPowerOfTwo    bool `json:"default_power_of_two"`
	DefaultSquare        bool `json:"default_square"`

	// Application preferences
	RecentProjects []string `json:"recent_projects"`
	ExportDir      string   `json:"export_dir"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultMaxWidth:      defaults.MaxWidth,
		DefaultMaxHeight:     defaults.MaxHeight,
		DefaultBorderPadding: defaults.BorderPadding,
		DefaultShapePadding:  defaults.ShapePadding,
		DefaultAllowRotate:   defaults.AllowRotate,
		DefaultPowerOfTwo:    defaults.PowerOfTwo,
		DefaultSquare:        defaults.Square,
		RecentProjects:       []string{},
	}
}

// ApplyToSettings copies the default values from AppConfig into a
// PackSettings struct. This is used when creating a new project so it
// inherits the user's saved defaults.
func (c AppConfig) ApplyToSettings(s *PackSettings) {
	s.MaxWidth = c.DefaultMaxWidth
	s.MaxHeight = c.DefaultMaxHeight
	s.BorderPadding = c.DefaultBorderPadding
	s.ShapePadding = c.DefaultShapePadding
	s.AllowRotate = c.DefaultAllowRotate
	s.PowerOfTwo = c.DefaultPowerOfTwo
	s.Square = c.DefaultSquare
}
