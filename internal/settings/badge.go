package settings

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/posterforge/posterforge/internal/models"
)

// ──────────────────── Typed sections ────────────────────

type GeneralSection struct {
	BadgeSize        int
	TextPadding      int
	UseDynamicSizing bool
	BadgePosition    string
	EdgePadding      int
	// Review container only.
	BadgeOrientation   string
	BadgeSpacing       int
	MaxBadgesToDisplay int
}

type TextSection struct {
	Font         string
	FallbackFont string
	TextSize     int
	TextColor    string
}

type BackgroundSection struct {
	Color   string
	Opacity int // 0..100
}

type BorderSection struct {
	Color  string
	Width  int
	Radius int
}

type ShadowSection struct {
	Enabled bool
	Blur    int
	OffsetX int
	OffsetY int
}

type ImageBadgesSection struct {
	Enabled        bool
	FallbackToText bool
	ImagePadding   int
	ImageDirectory string
	ImageMapping   map[string]string
}

// SourcesSection holds per-source enable flags for the review badge.
type SourcesSection struct {
	EnableIMDb        bool
	EnableTMDb        bool
	EnableRTCritics   bool
	EnableMetacritic  bool
	EnableMAL         bool
	EnableAniDB       bool
	DisplayOrder      []string
	DisableNormalized []string // sources whose raw score is shown unconverted
}

type AwardsSection struct {
	ColorScheme  string
	AwardSources []string
}

// BadgeSettings is the fully typed configuration for one badge type.
// Raw keeps the parsed YAML mapping so callers can reach keys the typed
// sections don't model; unknown sections are simply carried there.
type BadgeSettings struct {
	BadgeType   models.BadgeType
	General     GeneralSection
	Text        TextSection
	Background  BackgroundSection
	Border      BorderSection
	Shadow      ShadowSection
	ImageBadges ImageBadgesSection
	Sources     SourcesSection
	Awards      AwardsSection
	Raw         map[string]map[string]interface{}
}

// requiredSections lists what each badge type's document must contain.
var requiredSections = map[models.BadgeType][]string{
	models.BadgeAudio:      {"General", "Text", "Background", "Border", "ImageBadges"},
	models.BadgeResolution: {"General", "Text", "Background", "Border", "ImageBadges"},
	models.BadgeReview:     {"General", "Text", "Background", "Border"},
	models.BadgeAwards:     {"General", "Background", "Border", "ImageBadges"},
}

// ParseBadgeSettings decodes a YAML settings document and coerces the
// known sections. Unknown sections are ignored (kept in Raw); missing
// required sections yield a ValidationError so the caller can substitute
// defaults.
func ParseBadgeSettings(badgeType models.BadgeType, doc []byte) (*BadgeSettings, error) {
	if _, ok := requiredSections[badgeType]; !ok {
		return nil, fmt.Errorf("unknown badge type %q", badgeType)
	}

	raw := make(map[string]map[string]interface{})
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parse badge settings: %w", err)
	}

	s := &BadgeSettings{BadgeType: badgeType, Raw: raw}
	s.fill()

	if err := s.validate(); err != nil {
		return s, err
	}
	return s, nil
}

// ValidationError flags a structurally valid document that is missing
// required sections or keys. The parsed value is still usable; callers
// merge defaults over the gaps.
type ValidationError struct {
	BadgeType models.BadgeType
	Missing   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("badge settings for %s missing: %v", e.BadgeType, e.Missing)
}

func (s *BadgeSettings) validate() error {
	var missing []string
	for _, sec := range requiredSections[s.BadgeType] {
		if _, ok := s.Raw[sec]; !ok {
			missing = append(missing, sec)
		}
	}
	if gen, ok := s.Raw["General"]; ok {
		for _, key := range []string{"general_badge_size", "general_text_padding"} {
			if _, ok := gen[key]; !ok {
				missing = append(missing, "General."+key)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{BadgeType: s.BadgeType, Missing: missing}
	}
	return nil
}

func (s *BadgeSettings) fill() {
	if sec, ok := s.Raw["General"]; ok {
		s.General = GeneralSection{
			BadgeSize:          cast.ToInt(sec["general_badge_size"]),
			TextPadding:        cast.ToInt(sec["general_text_padding"]),
			UseDynamicSizing:   cast.ToBool(sec["use_dynamic_sizing"]),
			BadgePosition:      cast.ToString(sec["general_badge_position"]),
			EdgePadding:        cast.ToInt(sec["general_edge_padding"]),
			BadgeOrientation:   cast.ToString(sec["badge_orientation"]),
			BadgeSpacing:       cast.ToInt(sec["badge_spacing"]),
			MaxBadgesToDisplay: cast.ToInt(sec["max_badges_to_display"]),
		}
	}
	if sec, ok := s.Raw["Text"]; ok {
		s.Text = TextSection{
			Font:         cast.ToString(sec["font"]),
			FallbackFont: cast.ToString(sec["fallback_font"]),
			TextSize:     cast.ToInt(sec["text-size"]),
			TextColor:    cast.ToString(sec["text-color"]),
		}
	}
	if sec, ok := s.Raw["Background"]; ok {
		s.Background = BackgroundSection{
			Color:   cast.ToString(sec["background-color"]),
			Opacity: cast.ToInt(sec["background_opacity"]),
		}
	}
	if sec, ok := s.Raw["Border"]; ok {
		s.Border = BorderSection{
			Color:  cast.ToString(sec["border-color"]),
			Width:  cast.ToInt(sec["border_width"]),
			Radius: cast.ToInt(sec["border-radius"]),
		}
	}
	if sec, ok := s.Raw["Shadow"]; ok {
		s.Shadow = ShadowSection{
			Enabled: cast.ToBool(sec["shadow_enable"]),
			Blur:    cast.ToInt(sec["shadow_blur"]),
			OffsetX: cast.ToInt(sec["shadow_offset_x"]),
			OffsetY: cast.ToInt(sec["shadow_offset_y"]),
		}
	}
	if sec, ok := s.Raw["ImageBadges"]; ok {
		s.ImageBadges = ImageBadgesSection{
			Enabled:        cast.ToBool(sec["enable_image_badges"]),
			FallbackToText: cast.ToBool(sec["fallback_to_text"]),
			ImagePadding:   cast.ToInt(sec["image_padding"]),
			ImageDirectory: cast.ToString(sec["codec_image_directory"]),
			ImageMapping:   cast.ToStringMapString(sec["image_mapping"]),
		}
	}
	if sec, ok := s.Raw["Sources"]; ok {
		s.Sources = SourcesSection{
			EnableIMDb:        cast.ToBool(sec["enable_imdb"]),
			EnableTMDb:        cast.ToBool(sec["enable_tmdb"]),
			EnableRTCritics:   cast.ToBool(sec["enable_rotten_tomatoes_critics"]),
			EnableMetacritic:  cast.ToBool(sec["enable_metacritic"]),
			EnableMAL:         cast.ToBool(sec["enable_myanimelist"]),
			EnableAniDB:       cast.ToBool(sec["enable_anidb"]),
			DisplayOrder:      cast.ToStringSlice(sec["display_order"]),
			DisableNormalized: cast.ToStringSlice(sec["disable_normalization"]),
		}
	}
	if sec, ok := s.Raw["Awards"]; ok {
		s.Awards = AwardsSection{
			ColorScheme:  cast.ToString(sec["color_scheme"]),
			AwardSources: cast.ToStringSlice(sec["award_sources"]),
		}
	}
}

// Defaults returns a usable configuration for a badge type when the
// stored document is missing or fails validation.
func Defaults(badgeType models.BadgeType) *BadgeSettings {
	s := &BadgeSettings{
		BadgeType: badgeType,
		General: GeneralSection{
			BadgeSize:          100,
			TextPadding:        12,
			BadgePosition:      "top-right",
			EdgePadding:        30,
			BadgeOrientation:   "vertical",
			BadgeSpacing:       15,
			MaxBadgesToDisplay: 4,
		},
		Text: TextSection{
			Font:         "AvenirNextLTProBold.otf",
			FallbackFont: "DejaVuSans.ttf",
			TextSize:     40,
			TextColor:    "#FFFFFF",
		},
		Background: BackgroundSection{Color: "#000000", Opacity: 60},
		Border:     BorderSection{Color: "#000000", Width: 1, Radius: 10},
		ImageBadges: ImageBadgesSection{
			Enabled:        true,
			FallbackToText: true,
			ImagePadding:   5,
		},
		Sources: SourcesSection{
			EnableIMDb:      true,
			EnableTMDb:      true,
			EnableRTCritics: true,
			EnableMAL:       true,
		},
		Raw: map[string]map[string]interface{}{},
	}
	if badgeType == models.BadgeAwards {
		s.Awards = AwardsSection{ColorScheme: "black"}
	}
	return s
}
