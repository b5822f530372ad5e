package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	HotelsChanged   bool        // true if any hotel was added, removed or edited
	HotelChanges    []HotelDiff // per-hotel diffs
	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// HotelDiff describes what changed for a single hotel between two configs.
type HotelDiff struct {
	ID              string
	NameChanged     bool
	LanguageChanged bool
	PMSChanged      bool
	Added           bool
	Removed         bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldHotels := make(map[string]*HotelConfig, len(old.Hotels))
	for i := range old.Hotels {
		oldHotels[old.Hotels[i].ID] = &old.Hotels[i]
	}
	newHotels := make(map[string]*HotelConfig, len(new.Hotels))
	for i := range new.Hotels {
		newHotels[new.Hotels[i].ID] = &new.Hotels[i]
	}

	// Detect modified and removed hotels.
	for id, oldHotel := range oldHotels {
		newHotel, exists := newHotels[id]
		if !exists {
			d.HotelChanges = append(d.HotelChanges, HotelDiff{ID: id, Removed: true})
			d.HotelsChanged = true
			continue
		}
		hd := diffHotel(id, oldHotel, newHotel)
		if hd.NameChanged || hd.LanguageChanged || hd.PMSChanged {
			d.HotelChanges = append(d.HotelChanges, hd)
			d.HotelsChanged = true
		}
	}

	// Detect added hotels.
	for id := range newHotels {
		if _, exists := oldHotels[id]; !exists {
			d.HotelChanges = append(d.HotelChanges, HotelDiff{ID: id, Added: true})
			d.HotelsChanged = true
		}
	}

	return d
}

// diffHotel compares two hotel configs with the same id.
func diffHotel(id string, old, new *HotelConfig) HotelDiff {
	hd := HotelDiff{ID: id}

	if old.Name != new.Name {
		hd.NameChanged = true
	}
	if old.DefaultLanguage != new.DefaultLanguage {
		hd.LanguageChanged = true
	}
	if old.PMSBaseURL != new.PMSBaseURL || old.PMSPropertyID != new.PMSPropertyID || old.PMSAPIKey != new.PMSAPIKey {
		hd.PMSChanged = true
	}

	return hd
}
