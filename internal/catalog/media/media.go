// Package media holds the value types shared by the catalog entities: image sets, alternative
// titles, MyAnimeList references, date ranges and links.
package media

import "time"

// ImageURLs is one image in three sizes.
type ImageURLs struct {
	ImageURL      string `bson:"image_url" json:"image_url"`
	SmallImageURL string `bson:"small_image_url" json:"small_image_url"`
	LargeImageURL string `bson:"large_image_url" json:"large_image_url"`
}

// Images groups the JPEG and WebP renditions of a cover or portrait.
type Images struct {
	JPG  ImageURLs `bson:"jpg" json:"jpg"`
	WebP ImageURLs `bson:"webp" json:"webp"`
}

// Trailer points at a YouTube video.
type Trailer struct {
	YoutubeID string `bson:"youtube_id" json:"youtube_id"`
	URL       string `bson:"url" json:"url"`
	EmbedURL  string `bson:"embed_url" json:"embed_url"`
}

// ExternalLink is a named URL, e.g. an official site or a streaming service.
type ExternalLink struct {
	Name string `bson:"name" json:"name"`
	URL  string `bson:"url" json:"url"`
}

// MalEntity references a MyAnimeList record such as a studio, author or theme.
type MalEntity struct {
	MalID int64  `bson:"mal_id" json:"mal_id"`
	Type  string `bson:"type" json:"type"`
	Name  string `bson:"name" json:"name"`
}

// Title is an alternative title, typed "Default", "English", "Japanese", "Synonym" and so on.
type Title struct {
	Type  string `bson:"type" json:"type"`
	Title string `bson:"title" json:"title"`
}

// Theme lists opening and ending songs.
type Theme struct {
	Openings []string `bson:"openings" json:"openings"`
	Endings  []string `bson:"endings" json:"endings"`
}

// Relation links an entry to related entries, e.g. "Sequel" or "Adaptation".
type Relation struct {
	Relation string      `bson:"relation" json:"relation"`
	Entry    []MalEntity `bson:"entry" json:"entry"`
}

// DateParts is a possibly partial calendar date; unknown parts are zero.
type DateParts struct {
	Day   int `bson:"day" json:"day"`
	Month int `bson:"month" json:"month"`
	Year  int `bson:"year" json:"year"`
}

// DateRange is an airing or publishing period. From and To are nil when unknown.
type DateRange struct {
	From *time.Time    `bson:"from,omitempty" json:"from,omitempty"`
	To   *time.Time    `bson:"to,omitempty" json:"to,omitempty"`
	Prop DateRangeProp `bson:"prop" json:"prop"`
}

// DateRangeProp is the broken-down form of a DateRange plus its display string.
type DateRangeProp struct {
	From   DateParts `bson:"from" json:"from"`
	To     DateParts `bson:"to" json:"to"`
	String string    `bson:"string" json:"string"`
}

// Broadcast is the weekly airing slot of a running series.
type Broadcast struct {
	Day      string `bson:"day" json:"day"`
	Time     string `bson:"time" json:"time"`
	Timezone string `bson:"timezone" json:"timezone"`
	String   string `bson:"string" json:"string"`
}
