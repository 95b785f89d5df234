package domain

import "time"

// LibraryItem is one saved item of a user's library. Engine hits decode into
// it from _source; relational rows are scanned into it.
type LibraryItem struct {
	ItemID        string     `json:"item_id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Status        string     `json:"status"`
	Favorite      bool       `json:"favorite"`
	ContentType   string     `json:"content_type,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	WordCount     int        `json:"word_count,omitempty"`
	DateAdded     time.Time  `json:"date_added"`
	DatePublished *time.Time `json:"date_published,omitempty"`
}

// CorpusItem is one curated corpus document.
type CorpusItem struct {
	CorpusID    string     `json:"corpus_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	Language    string     `json:"language,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	TimeToRead  int        `json:"time_to_read,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
