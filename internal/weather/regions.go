package weather

import "sort"

// Climate is the long-term climate summary of a location.
type Climate struct {
	TempC      float64 `json:"temp_c"`
	DewpointC  float64 `json:"dewpoint_c"`
	PrecipMM   float64 `json:"precip_mm"`
	SolarRad   float64 `json:"solar_rad"`
	AnnualRain float64 `json:"annual_rain"`
	RainCV     float64 `json:"rain_cv"`
}

// Region is a cotton-growing county with its agronomic defaults and a
// static climate used when the archive API is unreachable.
type Region struct {
	Key        string
	Name       string
	Lat, Lon   float64
	SoilType   string
	Irrigation float64
	PrevYield  float64
	Fallback   Climate
}

const DefaultRegionKey = "kenya_busia"

var regions = map[string]Region{
	"kenya_busia":     {"kenya_busia", "Kenya - Busia County", 0.4347, 34.2422, "Red", 15, 1.8, Climate{24, 20, 110, 17, 1300, 18}},
	"kenya_bungoma":   {"kenya_bungoma", "Kenya - Bungoma County", 0.5692, 34.5584, "Red", 12, 1.9, Climate{23, 19, 120, 17, 1400, 16}},
	"kenya_kakamega":  {"kenya_kakamega", "Kenya - Kakamega County", 0.2842, 34.7526, "Red", 10, 2.0, Climate{23, 20, 130, 16, 1500, 15}},
	"kenya_homabay":   {"kenya_homabay", "Kenya - Homa Bay County", -0.5273, 34.4571, "Red", 20, 1.7, Climate{25, 20, 90, 18, 1100, 20}},
	"kenya_migori":    {"kenya_migori", "Kenya - Migori County", -1.0674, 34.4730, "Red", 18, 1.8, Climate{24, 20, 95, 17, 1200, 18}},
	"kenya_siaya":     {"kenya_siaya", "Kenya - Siaya County", 0.0607, 34.2885, "Red", 15, 1.8, Climate{24, 21, 100, 17, 1250, 17}},
	"kenya_machakos":  {"kenya_machakos", "Kenya - Machakos County", -1.5181, 37.2634, "Red", 35, 1.3, Climate{22, 16, 55, 19, 650, 28}},
	"kenya_makueni":   {"kenya_makueni", "Kenya - Makueni County", -2.1943, 37.6140, "Red", 40, 1.2, Climate{23, 15, 50, 20, 600, 30}},
	"kenya_kitui":     {"kenya_kitui", "Kenya - Kitui County", -1.3664, 38.0106, "Red", 60, 1.0, Climate{26, 14, 35, 21, 450, 35}},
	"kenya_baringo":   {"kenya_baringo", "Kenya - Baringo County", 0.8552, 35.2698, "Black", 38, 1.4, Climate{27, 16, 60, 20, 700, 27}},
	"kenya_westpokot": {"kenya_westpokot", "Kenya - West Pokot County", 1.3050, 35.2698, "Red", 32, 1.5, Climate{25, 15, 65, 19, 750, 25}},
	"kenya_kwale":     {"kenya_kwale", "Kenya - Kwale County", -4.1730, 39.4521, "Laterite", 25, 1.6, Climate{26, 22, 85, 18, 1000, 22}},
	"kenya_kilifi":    {"kenya_kilifi", "Kenya - Kilifi County", -3.5107, 39.9093, "Laterite", 28, 1.5, Climate{27, 23, 80, 19, 950, 24}},
}

// LookupRegion returns the region for key, or Busia when key is unknown.
func LookupRegion(key string) Region {
	if r, ok := regions[key]; ok {
		return r
	}
	return regions[DefaultRegionKey]
}

// Regions lists all known regions ordered by name.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
