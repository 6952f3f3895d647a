package textutil

// platformAliases maps normalized catalog platform names onto one shared key.
var platformAliases = map[string]string{
	"pc":                                  "pc",
	"pc microsoft windows":                "pc",
	"windows":                             "pc",
	"microsoft windows":                   "pc",
	"mac":                                 "mac",
	"macos":                               "mac",
	"linux":                               "linux",
	"playstation":                         "ps1",
	"playstation 1":                       "ps1",
	"playstation 2":                       "ps2",
	"playstation 3":                       "ps3",
	"playstation 4":                       "ps4",
	"playstation 5":                       "ps5",
	"ps vita":                             "vita",
	"playstation vita":                    "vita",
	"psp":                                 "psp",
	"playstation portable":                "psp",
	"xbox":                                "xbox",
	"xbox 360":                            "xbox360",
	"xbox one":                            "xboxone",
	"xbox series x s":                     "xboxseries",
	"xbox series s x":                     "xboxseries",
	"nintendo switch":                     "switch",
	"switch":                              "switch",
	"wii":                                 "wii",
	"wii u":                               "wiiu",
	"nintendo 3ds":                        "3ds",
	"nintendo ds":                         "ds",
	"nintendo 64":                         "n64",
	"gamecube":                            "gamecube",
	"nintendo gamecube":                   "gamecube",
	"ios":                                 "ios",
	"android":                             "android",
	"super nintendo entertainment system": "snes",
	"snes":                                "snes",
	"nintendo entertainment system":       "nes",
	"nes":                                 "nes",
	"game boy advance":                    "gba",
	"sega mega drive genesis":             "genesis",
	"genesis":                             "genesis",
}

// PlatformKey returns the shared key for a catalog platform name.
// Unknown platforms key on their normalized name.
func PlatformKey(name string) string {
	normalized := NormalizeName(name)
	if key, ok := platformAliases[normalized]; ok {
		return key
	}
	return normalized
}

// PlatformOverlap returns the share of source platforms also present in
// target, compared by PlatformKey. An empty source list yields 0.
func PlatformOverlap(source, target []string) float64 {
	if len(source) == 0 {
		return 0
	}
	targets := make(map[string]struct{}, len(target))
	for _, name := range target {
		if key := PlatformKey(name); key != "" {
			targets[key] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(source))
	matched := 0
	for _, name := range source {
		key := PlatformKey(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := targets[key]; ok {
			matched++
		}
	}
	if len(seen) == 0 {
		return 0
	}
	return float64(matched) / float64(len(seen))
}
