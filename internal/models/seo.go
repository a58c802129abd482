package models

// SEO setting keys stored in the seo_settings table
const (
	SEOSiteName           = "site_name"
	SEOSiteDescription    = "site_description"
	SEODefaultKeywords    = "default_keywords"
	SEOGoogleVerification = "google_verification"
	SEOBingVerification   = "bing_verification"
	SEOGoogleAnalyticsID  = "google_analytics_id"
)

// SEOSettings maps setting keys to values
type SEOSettings map[string]string

// DefaultSEOSettings returns the site-wide defaults every stored value overrides
func DefaultSEOSettings() SEOSettings {
	return SEOSettings{
		SEOSiteName:           "ताज़ा खबर",
		SEOSiteDescription:    "भारत की सबसे विश्वसनीय हिंदी समाचार वेबसाइट",
		SEODefaultKeywords:    "हिंदी समाचार, ताज़ा खबर, भारत समाचार",
		SEOGoogleVerification: "",
		SEOBingVerification:   "",
		SEOGoogleAnalyticsID:  "",
	}
}

// IsSEOKey reports whether key is a known setting
func IsSEOKey(key string) bool {
	_, ok := DefaultSEOSettings()[key]
	return ok
}
